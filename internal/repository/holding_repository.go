package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
)

// HoldingRepository provides data access methods for the holding table.
// Holdings are derived state: only the ledger engine writes them, always
// inside the same transaction as the trade that caused the change.
type HoldingRepository struct {
	db *sql.DB
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// Get retrieves the holding for one investor/security pair.
// Returns apperrors.ErrHoldingNotFound when no open position exists.
func (s *HoldingRepository) Get(ctx context.Context, q DBTX, investorID, securityID string) (model.Holding, error) {
	query := `
		SELECT investor_id, security_id, quantity, avg_cost, total_invested, updated_at
		FROM holding
		WHERE investor_id = ? AND security_id = ?
	`

	row := q.QueryRowContext(ctx, query, investorID, securityID)
	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return model.Holding{}, apperrors.ErrHoldingNotFound
	}
	if err != nil {
		return model.Holding{}, err
	}
	return h, nil
}

// Upsert writes the holding row, replacing any existing state for the pair.
func (s *HoldingRepository) Upsert(ctx context.Context, q DBTX, h *model.Holding) error {
	query := `
		INSERT INTO holding (investor_id, security_id, quantity, avg_cost, total_invested, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(investor_id, security_id) DO UPDATE SET
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost,
			total_invested = excluded.total_invested,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		h.InvestorID,
		h.SecurityID,
		h.Quantity.String(),
		h.AvgCost.String(),
		h.TotalInvested.String(),
		h.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

// Delete removes the holding row for a fully liquidated position, so the
// next buy starts a fresh average cost.
func (s *HoldingRepository) Delete(ctx context.Context, q DBTX, investorID, securityID string) error {
	query := `DELETE FROM holding WHERE investor_id = ? AND security_id = ?`

	if _, err := q.ExecContext(ctx, query, investorID, securityID); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

// ListByInvestor retrieves all open positions of one investor, largest
// invested amount first.
func (s *HoldingRepository) ListByInvestor(ctx context.Context, investorID string) ([]model.Holding, error) {
	query := `
		SELECT investor_id, security_id, quantity, avg_cost, total_invested, updated_at
		FROM holding
		WHERE investor_id = ?
		ORDER BY CAST(total_invested AS REAL) DESC
	`

	rows, err := s.db.QueryContext(ctx, query, investorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		h, err := scanHoldingRows(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return holdings, nil
}

// HeldSecurities returns the distinct security identifiers with at least
// one open position anywhere in the system. Used by the quote refresher.
func (s *HoldingRepository) HeldSecurities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT security_id FROM holding`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan holding table results: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}

	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHoldingScanner(sc rowScanner) (model.Holding, error) {
	var h model.Holding
	var quantityStr, avgCostStr, investedStr, updatedAtStr string

	err := sc.Scan(&h.InvestorID, &h.SecurityID, &quantityStr, &avgCostStr, &investedStr, &updatedAtStr)
	if err != nil {
		return model.Holding{}, err
	}

	if h.Quantity, err = ParseDecimal(quantityStr); err != nil {
		return model.Holding{}, err
	}
	if h.AvgCost, err = ParseDecimal(avgCostStr); err != nil {
		return model.Holding{}, err
	}
	if h.TotalInvested, err = ParseDecimal(investedStr); err != nil {
		return model.Holding{}, err
	}
	if h.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Holding{}, err
	}

	return h, nil
}

func scanHolding(row *sql.Row) (model.Holding, error) {
	h, err := scanHoldingScanner(row)
	if err == sql.ErrNoRows {
		return model.Holding{}, sql.ErrNoRows
	}
	if err != nil {
		return model.Holding{}, fmt.Errorf("failed to scan holding table results: %w", err)
	}
	return h, nil
}

func scanHoldingRows(rows *sql.Rows) (model.Holding, error) {
	h, err := scanHoldingScanner(rows)
	if err != nil {
		return model.Holding{}, fmt.Errorf("failed to scan holding table results: %w", err)
	}
	return h, nil
}
