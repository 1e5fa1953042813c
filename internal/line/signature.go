// Package line integrates with the LINE Messaging API: webhook
// signature validation, the reply/push client, and the chat rendering
// of message outcomes.
package line

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/api/response"
	"github.com/twledger/stock-ledger-backend/internal/apperrors"
)

// ValidateSignature checks a webhook body against the X-Line-Signature
// header: base64 of the HMAC-SHA256 of the raw body under the channel
// secret.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignatureMiddleware rejects webhook requests whose signature does not
// verify. The body is buffered and restored for the next handler.
func SignatureMiddleware(channelSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				response.RespondError(w, http.StatusBadRequest, "failed to read request body", nil)
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !ValidateSignature(channelSecret, body, r.Header.Get("X-Line-Signature")) {
				response.RespondError(w, http.StatusUnauthorized, apperrors.ErrInvalidSignature.Error(), nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
