package line

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/api/response"
	"github.com/twledger/stock-ledger-backend/internal/message"
)

// webhookPayload mirrors the LINE webhook envelope, limited to the
// fields the bot reads.
type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

// Messenger is the subset of Client the webhook needs, split out so
// tests can capture replies.
type Messenger interface {
	ReplyText(ctx context.Context, replyToken, text string) error
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// WebhookHandler receives LINE webhook events and routes text messages
// through the message service.
type WebhookHandler struct {
	messages  *message.Service
	messenger Messenger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(messages *message.Service, messenger Messenger) *WebhookHandler {
	return &WebhookHandler{messages: messages, messenger: messenger}
}

// ServeHTTP handles one webhook delivery. Events are processed in
// order; a failing event is logged and skipped so the rest of the batch
// still goes through, and LINE always gets a 200.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid webhook payload", err.Error())
		return
	}

	ctx := r.Context()
	for _, event := range payload.Events {
		switch {
		case event.Type == "follow":
			h.handleFollow(ctx, event)
		case event.Type == "message" && event.Message.Type == "text":
			h.handleText(ctx, event)
		}
	}

	response.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleFollow(ctx context.Context, event webhookEvent) {
	displayName := h.displayName(ctx, event.Source.UserID)
	if _, err := h.messages.Register(ctx, event.Source.UserID, displayName); err != nil {
		log.Printf("Webhook follow registration failed: %v", err)
		return
	}
	h.reply(ctx, event.ReplyToken, "歡迎使用記帳機器人！\n\n"+helpText)
}

func (h *WebhookHandler) handleText(ctx context.Context, event webhookEvent) {
	displayName := h.displayName(ctx, event.Source.UserID)
	outcome, err := h.messages.Handle(ctx, event.Source.UserID, displayName, event.Message.Text)
	if err != nil {
		log.Printf("Webhook message handling failed: %v", err)
		h.reply(ctx, event.ReplyToken, "系統忙碌中，請稍後再試。")
		return
	}
	h.reply(ctx, event.ReplyToken, RenderOutcome(outcome))
}

// displayName fetches the sender's profile name, best effort.
func (h *WebhookHandler) displayName(ctx context.Context, userID string) string {
	profile, err := h.messenger.GetProfile(ctx, userID)
	if err != nil {
		return ""
	}
	return profile.DisplayName
}

func (h *WebhookHandler) reply(ctx context.Context, replyToken, text string) {
	if replyToken == "" {
		return
	}
	if err := h.messenger.ReplyText(ctx, replyToken, text); err != nil {
		log.Printf("Webhook reply failed: %v", err)
	}
}
