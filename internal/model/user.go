package model

import "time"

// SelfInvestorName is the reserved investor name denoting the ledger
// owner's own identity.
const SelfInvestorName = "我"

// User is the chat identity that owns a private ledger. Every investor,
// trade and holding in the system belongs to exactly one user.
type User struct {
	ID          string    `json:"id"`
	LineUserID  string    `json:"lineUserId"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Investor is a named party tracked inside one user's ledger. The user's
// own identity is the investor named "我" with IsSelf set. Investors are
// created on first mention and never deleted.
type Investor struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	IsSelf    bool      `json:"isSelf"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
