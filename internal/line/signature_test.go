package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	t.Run("accepts a correctly signed body", func(t *testing.T) {
		if !ValidateSignature(secret, body, sign(secret, string(body))) {
			t.Error("Expected signature to validate")
		}
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		if ValidateSignature(secret, []byte(`{"events":[{}]}`), sign(secret, string(body))) {
			t.Error("Expected tampered body to fail")
		}
	})

	t.Run("rejects the wrong secret", func(t *testing.T) {
		if ValidateSignature("other-secret", body, sign(secret, string(body))) {
			t.Error("Expected wrong secret to fail")
		}
	})

	t.Run("rejects an empty signature", func(t *testing.T) {
		if ValidateSignature(secret, body, "") {
			t.Error("Expected empty signature to fail")
		}
	})
}

func TestSignatureMiddleware(t *testing.T) {
	secret := "channel-secret"
	var sawBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("Failed to read body in next handler: %v", err)
		}
		sawBody = string(body)
		w.WriteHeader(http.StatusOK)
	})
	handler := SignatureMiddleware(secret)(next)

	t.Run("valid signature passes the body through", func(t *testing.T) {
		body := `{"events":[]}`
		req := httptest.NewRequest(http.MethodPost, "/api/line/webhook", strings.NewReader(body))
		req.Header.Set("X-Line-Signature", sign(secret, body))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
		if sawBody != body {
			t.Errorf("Expected body to be restored, got %q", sawBody)
		}
	})

	t.Run("invalid signature is rejected with 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/line/webhook", strings.NewReader(`{}`))
		req.Header.Set("X-Line-Signature", "bad")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})
}
