// Package secrets encrypts credential values before they hit the
// setting table, so a copied database file does not leak the LINE
// channel token.
package secrets

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// Box encrypts and decrypts short secret strings with a fernet key.
type Box struct {
	key *fernet.Key
}

// NewBox creates a Box from a base64-encoded fernet key, as produced by
// fernet key generators.
func NewBox(encodedKey string) (*Box, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fernet key: %w", err)
	}
	return &Box{key: key}, nil
}

// Encrypt returns the fernet token for the given plaintext.
func (b *Box) Encrypt(plaintext string) (string, error) {
	token, err := fernet.EncryptAndSign([]byte(plaintext), b.key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt value: %w", err)
	}
	return string(token), nil
}

// Decrypt verifies and decrypts a fernet token. Tokens do not expire;
// rotation happens by re-encrypting under a new key.
func (b *Box) Decrypt(token string) (string, error) {
	plaintext := fernet.VerifyAndDecrypt([]byte(token), 0*time.Second, []*fernet.Key{b.key})
	if plaintext == nil {
		return "", fmt.Errorf("failed to decrypt value: invalid token")
	}
	return string(plaintext), nil
}
