package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/api/request"
	"github.com/twledger/stock-ledger-backend/internal/api/response"
	"github.com/twledger/stock-ledger-backend/internal/message"
)

// MessageHandler exposes the chat pipeline over REST, mainly for the
// web frontend and for exercising the bot without LINE.
type MessageHandler struct {
	messages *message.Service
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages *message.Service) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Handle processes one chat sentence and returns the structured outcome.
//
// Endpoint: POST /api/message
// Response: 200 OK with message.Outcome
func (h *MessageHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req request.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	outcome, err := h.messages.Handle(r.Context(), req.UserID, req.DisplayName, req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}
