package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
)

// PriceRepository provides data access methods for the durable
// price_cache table. It sits behind the in-process TTL cache and lets
// quotes survive restarts.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Get retrieves the cached quote for a security regardless of age.
// Callers decide whether the quote is still fresh enough to use.
// Returns apperrors.ErrPriceUnavailable when nothing is cached.
func (s *PriceRepository) Get(ctx context.Context, securityID string) (model.Quote, error) {
	query := `
		SELECT security_id, current_price, previous_close, change_percent, fetched_at
		FROM price_cache
		WHERE security_id = ?
	`

	var q model.Quote
	var priceStr, fetchedAtStr string
	var prevCloseStr, changePctStr sql.NullString

	err := s.db.QueryRowContext(ctx, query, securityID).Scan(&q.SecurityID, &priceStr, &prevCloseStr, &changePctStr, &fetchedAtStr)
	if err == sql.ErrNoRows {
		return model.Quote{}, apperrors.ErrPriceUnavailable
	}
	if err != nil {
		return model.Quote{}, fmt.Errorf("failed to query price_cache table: %w", err)
	}

	if q.CurrentPrice, err = ParseDecimal(priceStr); err != nil {
		return model.Quote{}, err
	}
	if q.PreviousClose, err = ParseDecimal(prevCloseStr.String); err != nil {
		return model.Quote{}, err
	}
	if q.ChangePercent, err = ParseDecimal(changePctStr.String); err != nil {
		return model.Quote{}, err
	}
	if q.FetchedAt, err = ParseTime(fetchedAtStr); err != nil {
		return model.Quote{}, err
	}

	return q, nil
}

// Upsert writes the latest quote for a security.
func (s *PriceRepository) Upsert(ctx context.Context, q *model.Quote) error {
	query := `
		INSERT INTO price_cache (security_id, current_price, previous_close, change_percent, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(security_id) DO UPDATE SET
			current_price = excluded.current_price,
			previous_close = excluded.previous_close,
			change_percent = excluded.change_percent,
			fetched_at = excluded.fetched_at
	`

	_, err := s.db.ExecContext(ctx, query,
		q.SecurityID,
		q.CurrentPrice.String(),
		q.PreviousClose.String(),
		q.ChangePercent.String(),
		q.FetchedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price_cache: %w", err)
	}
	return nil
}
