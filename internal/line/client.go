package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/secrets"
)

// Client calls the LINE Messaging API. The channel access token lives
// encrypted in the setting table and is decrypted on demand, so a token
// rotation needs no restart.
type Client struct {
	httpClient  *http.Client
	settingRepo *repository.SettingRepository
	box         *secrets.Box
	baseURL     string
}

// NewClient creates a LINE client reading its channel token through the
// given setting repository and secret box.
func NewClient(settingRepo *repository.SettingRepository, box *secrets.Box) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		settingRepo: settingRepo,
		box:         box,
		baseURL:     "https://api.line.me/v2/bot",
	}
}

// Profile is the subset of a LINE user profile the bot uses.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ReplyText answers one webhook event with a text message.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	payload := struct {
		ReplyToken string        `json:"replyToken"`
		Messages   []textMessage `json:"messages"`
	}{
		ReplyToken: replyToken,
		Messages:   []textMessage{{Type: "text", Text: text}},
	}
	return c.post(ctx, "/message/reply", payload)
}

// PushText sends an unsolicited text message to a user.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	payload := struct {
		To       string        `json:"to"`
		Messages []textMessage `json:"messages"`
	}{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	}
	return c.post(ctx, "/message/push", payload)
}

// GetProfile fetches a user's display name. Callers treat failures as
// an empty profile; the ledger never depends on it.
func (c *Client) GetProfile(ctx context.Context, userID string) (Profile, error) {
	token, err := c.token(ctx)
	if err != nil {
		return Profile{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/profile/"+userID, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("profile request returned %d", resp.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line api %s returned %d: %s", path, resp.StatusCode, detail)
	}
	return nil
}

// token loads and decrypts the channel access token.
func (c *Client) token(ctx context.Context) (string, error) {
	encrypted, err := c.settingRepo.Get(ctx, repository.SettingLineChannelToken)
	if err != nil {
		return "", err
	}
	return c.box.Decrypt(encrypted)
}
