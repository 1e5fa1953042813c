package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
)

// Setting keys used by the application.
const (
	SettingLineChannelToken = "line_channel_token"
)

// SettingRepository provides data access methods for the setting table.
// Values holding credentials are stored fernet-encrypted by the caller.
type SettingRepository struct {
	db *sql.DB
}

// NewSettingRepository creates a new SettingRepository with the provided database connection.
func NewSettingRepository(db *sql.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get retrieves a setting value by key.
func (s *SettingRepository) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM setting WHERE "key" = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, apperrors.ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting table: %w", err)
	}

	return value, nil
}

// Set writes a setting value, replacing any previous one.
func (s *SettingRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO setting ("key", value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT("key") DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}
