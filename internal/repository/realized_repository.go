package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/twledger/stock-ledger-backend/internal/model"
)

// RealizedPnLRepository provides data access methods for the
// realized_pnl table. One row is written per sell trade, inside the
// same transaction as the trade itself.
type RealizedPnLRepository struct {
	db *sql.DB
}

// NewRealizedPnLRepository creates a new RealizedPnLRepository with the provided database connection.
func NewRealizedPnLRepository(db *sql.DB) *RealizedPnLRepository {
	return &RealizedPnLRepository{db: db}
}

// Insert records the realized gain/loss of one sell.
func (s *RealizedPnLRepository) Insert(ctx context.Context, q DBTX, r *model.RealizedPnL) error {
	query := `
		INSERT INTO realized_pnl (id, investor_id, security_id, trade_id, quantity_sold, cost_basis, proceeds, gain_loss, trade_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		r.ID,
		r.InvestorID,
		r.SecurityID,
		r.TradeID,
		r.QuantitySold.String(),
		r.CostBasis.String(),
		r.Proceeds.String(),
		r.GainLoss.String(),
		r.TradeDate.Format("2006-01-02"),
		r.CreatedAt.UTC().Format(TimestampFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert realized_pnl: %w", err)
	}
	return nil
}

// Summarize aggregates realized P&L per security for one investor,
// optionally narrowed to a single security. Ordering is by security
// identifier for deterministic output.
func (s *RealizedPnLRepository) Summarize(ctx context.Context, investorID, securityID string) ([]model.RealizedSummary, error) {
	query := `
		SELECT r.security_id, COALESCE(ds.name_zh, ''),
			SUM(CAST(r.quantity_sold AS REAL)), SUM(CAST(r.cost_basis AS REAL)),
			SUM(CAST(r.proceeds AS REAL)), SUM(CAST(r.gain_loss AS REAL))
		FROM realized_pnl r
		LEFT JOIN dim_security ds ON r.security_id = ds.security_id
		WHERE r.investor_id = ?
	`
	args := []any{investorID}

	if securityID != "" {
		query += ` AND r.security_id = ?`
		args = append(args, securityID)
	}

	query += `
		GROUP BY r.security_id
		ORDER BY r.security_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_pnl table: %w", err)
	}
	defer rows.Close()

	summaries := []model.RealizedSummary{}
	for rows.Next() {
		var sum model.RealizedSummary
		var quantity, costBasis, proceeds, gainLoss float64

		err := rows.Scan(&sum.SecurityID, &sum.SecurityName, &quantity, &costBasis, &proceeds, &gainLoss)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realized_pnl table results: %w", err)
		}

		sum.QuantitySold = decimalFromStoredFloat(quantity)
		sum.CostBasis = decimalFromStoredFloat(costBasis)
		sum.Proceeds = decimalFromStoredFloat(proceeds)
		sum.GainLoss = decimalFromStoredFloat(gainLoss)

		summaries = append(summaries, sum)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized_pnl table: %w", err)
	}

	return summaries, nil
}

// ListByInvestor retrieves the individual realized P&L entries for one
// investor in chronological order.
func (s *RealizedPnLRepository) ListByInvestor(ctx context.Context, investorID string) ([]model.RealizedPnL, error) {
	query := `
		SELECT id, investor_id, security_id, trade_id, quantity_sold, cost_basis, proceeds, gain_loss, trade_date, created_at
		FROM realized_pnl
		WHERE investor_id = ?
		ORDER BY trade_date ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, investorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query realized_pnl table: %w", err)
	}
	defer rows.Close()

	entries := []model.RealizedPnL{}
	for rows.Next() {
		var r model.RealizedPnL
		var quantityStr, costStr, proceedsStr, gainStr, dateStr, createdAtStr string

		err := rows.Scan(&r.ID, &r.InvestorID, &r.SecurityID, &r.TradeID, &quantityStr, &costStr, &proceedsStr, &gainStr, &dateStr, &createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan realized_pnl table results: %w", err)
		}

		if r.QuantitySold, err = ParseDecimal(quantityStr); err != nil {
			return nil, err
		}
		if r.CostBasis, err = ParseDecimal(costStr); err != nil {
			return nil, err
		}
		if r.Proceeds, err = ParseDecimal(proceedsStr); err != nil {
			return nil, err
		}
		if r.GainLoss, err = ParseDecimal(gainStr); err != nil {
			return nil, err
		}
		if r.TradeDate, err = ParseTime(dateStr); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, err
		}

		entries = append(entries, r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realized_pnl table: %w", err)
	}

	return entries, nil
}
