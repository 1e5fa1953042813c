package secrets

import (
	"testing"

	"github.com/fernet/fernet-go"
)

func TestBox_RoundTrip(t *testing.T) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	box, err := NewBox(key.Encode())
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}

	token, err := box.Encrypt("channel-access-token-123")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if token == "channel-access-token-123" {
		t.Error("Expected ciphertext to differ from plaintext")
	}

	plaintext, err := box.Decrypt(token)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plaintext != "channel-access-token-123" {
		t.Errorf("Expected round trip to return original, got %q", plaintext)
	}
}

func TestBox_RejectsGarbage(t *testing.T) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	box, err := NewBox(key.Encode())
	if err != nil {
		t.Fatalf("NewBox failed: %v", err)
	}

	if _, err := box.Decrypt("not-a-fernet-token"); err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestNewBox_InvalidKey(t *testing.T) {
	if _, err := NewBox("short"); err == nil {
		t.Error("Expected error for invalid key")
	}
}
