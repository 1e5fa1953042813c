package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
)

// SecurityRepository provides read access to the dim_security reference
// table. The table is maintained by an external daily job; this service
// never writes it and assumes nothing beyond read-at-call-time
// consistency.
type SecurityRepository struct {
	db *sql.DB
}

// NewSecurityRepository creates a new SecurityRepository with the provided database connection.
func NewSecurityRepository(db *sql.DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

// GetByID retrieves one security by its canonical identifier.
// Returns apperrors.ErrSecurityNotFound when the identifier is unknown.
func (s *SecurityRepository) GetByID(ctx context.Context, securityID string) (model.Security, error) {
	query := `
		SELECT security_id, name_zh, market, industry, isin, status
		FROM dim_security
		WHERE security_id = ?
	`

	var sec model.Security
	var market, industry, isin, status sql.NullString

	err := s.db.QueryRowContext(ctx, query, securityID).Scan(&sec.ID, &sec.NameZh, &market, &industry, &isin, &status)
	if err == sql.ErrNoRows {
		return model.Security{}, apperrors.ErrSecurityNotFound
	}
	if err != nil {
		return model.Security{}, fmt.Errorf("failed to query dim_security table: %w", err)
	}

	sec.Market = market.String
	sec.Industry = industry.String
	sec.ISIN = isin.String
	sec.Status = status.String

	return sec, nil
}

// SearchByName retrieves securities whose Chinese name contains the
// keyword, capped at limit rows.
func (s *SecurityRepository) SearchByName(ctx context.Context, keyword string, limit int) ([]model.Security, error) {
	query := `
		SELECT security_id, name_zh, market, industry, isin, status
		FROM dim_security
		WHERE name_zh LIKE ?
		ORDER BY security_id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, "%"+keyword+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dim_security table: %w", err)
	}
	defer rows.Close()

	securities := []model.Security{}
	for rows.Next() {
		var sec model.Security
		var market, industry, isin, status sql.NullString

		if err := rows.Scan(&sec.ID, &sec.NameZh, &market, &industry, &isin, &status); err != nil {
			return nil, fmt.Errorf("failed to scan dim_security table results: %w", err)
		}

		sec.Market = market.String
		sec.Industry = industry.String
		sec.ISIN = isin.String
		sec.Status = status.String

		securities = append(securities, sec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dim_security table: %w", err)
	}

	return securities, nil
}
