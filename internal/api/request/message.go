// Package request defines the API request payloads and their
// validation.
package request

import (
	"github.com/twledger/stock-ledger-backend/internal/validation"
)

// MessageRequest is the POST /api/message payload: one chat sentence
// attributed to a chat user.
type MessageRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Text        string `json:"text"`
}

// Validate checks required fields and bounds.
func (r *MessageRequest) Validate() error {
	return validation.ValidateMessage(r.UserID, r.Text)
}
