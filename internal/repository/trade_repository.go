package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/twledger/stock-ledger-backend/internal/model"
)

// TradeRepository provides data access methods for the append-only
// trade table. There are deliberately no update or delete methods.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository creates a new TradeRepository with the provided database connection.
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Insert appends one trade to the log. Callers pass the enclosing
// transaction so the append and the holding update commit atomically.
func (s *TradeRepository) Insert(ctx context.Context, q DBTX, t *model.Trade) error {
	query := `
		INSERT INTO trade (id, investor_id, security_id, side, quantity, price, fee, tax, total_amount, trade_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		t.ID,
		t.InvestorID,
		t.SecurityID,
		string(t.Side),
		t.Quantity.String(),
		t.Price.String(),
		t.Fee.String(),
		t.Tax.String(),
		t.TotalAmount.String(),
		t.TradeDate.Format("2006-01-02"),
		t.Notes,
		t.CreatedAt.UTC().Format(TimestampFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// List retrieves trades for one investor in chronological order, oldest
// first, optionally narrowed by security and date range. The result is
// materialized, so each call yields a fresh, re-iterable sequence.
func (s *TradeRepository) List(ctx context.Context, investorID string, filter model.TradeFilter) ([]model.Trade, error) {
	query := `
		SELECT id, investor_id, security_id, side, quantity, price, fee, tax, total_amount, trade_date, notes, created_at
		FROM trade
		WHERE investor_id = ?
	`
	args := []any{investorID}

	if filter.SecurityID != "" {
		query += ` AND security_id = ?`
		args = append(args, filter.SecurityID)
	}
	if !filter.From.IsZero() {
		query += ` AND trade_date >= ?`
		args = append(args, filter.From.Format("2006-01-02"))
	}
	if !filter.To.IsZero() {
		query += ` AND trade_date <= ?`
		args = append(args, filter.To.Format("2006-01-02"))
	}

	query += ` ORDER BY trade_date ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade table: %w", err)
	}

	return trades, nil
}

// ListByUser retrieves all trades across a user's investors, joined with
// investor and security names for presentation.
func (s *TradeRepository) ListByUser(ctx context.Context, userID string) ([]model.TradeResponse, error) {
	query := `
		SELECT t.id, i.name, t.security_id, COALESCE(ds.name_zh, ''), t.side, t.quantity, t.price, t.fee, t.tax, t.total_amount, t.trade_date
		FROM trade t
		JOIN investor i ON t.investor_id = i.id
		LEFT JOIN dim_security ds ON t.security_id = ds.security_id
		WHERE i.user_id = ?
		ORDER BY t.trade_date ASC, t.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade table: %w", err)
	}
	defer rows.Close()

	trades := []model.TradeResponse{}
	for rows.Next() {
		var t model.TradeResponse
		var side, quantityStr, priceStr, feeStr, taxStr, totalStr, dateStr string

		err := rows.Scan(&t.ID, &t.InvestorName, &t.SecurityID, &t.SecurityName, &side, &quantityStr, &priceStr, &feeStr, &taxStr, &totalStr, &dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade table results: %w", err)
		}

		t.Side = model.Side(side)
		if t.Quantity, err = ParseDecimal(quantityStr); err != nil {
			return nil, err
		}
		if t.Price, err = ParseDecimal(priceStr); err != nil {
			return nil, err
		}
		if t.Fee, err = ParseDecimal(feeStr); err != nil {
			return nil, err
		}
		if t.Tax, err = ParseDecimal(taxStr); err != nil {
			return nil, err
		}
		if t.TotalAmount, err = ParseDecimal(totalStr); err != nil {
			return nil, err
		}
		if t.TradeDate, err = ParseTime(dateStr); err != nil {
			return nil, err
		}

		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade table: %w", err)
	}

	return trades, nil
}

func scanTrade(rows *sql.Rows) (model.Trade, error) {
	var t model.Trade
	var side, quantityStr, priceStr, feeStr, taxStr, totalStr, dateStr, createdAtStr string
	var notes sql.NullString

	err := rows.Scan(
		&t.ID,
		&t.InvestorID,
		&t.SecurityID,
		&side,
		&quantityStr,
		&priceStr,
		&feeStr,
		&taxStr,
		&totalStr,
		&dateStr,
		&notes,
		&createdAtStr,
	)
	if err != nil {
		return model.Trade{}, fmt.Errorf("failed to scan trade table results: %w", err)
	}

	t.Side = model.Side(side)
	t.Notes = notes.String

	if t.Quantity, err = ParseDecimal(quantityStr); err != nil {
		return model.Trade{}, err
	}
	if t.Price, err = ParseDecimal(priceStr); err != nil {
		return model.Trade{}, err
	}
	if t.Fee, err = ParseDecimal(feeStr); err != nil {
		return model.Trade{}, err
	}
	if t.Tax, err = ParseDecimal(taxStr); err != nil {
		return model.Trade{}, err
	}
	if t.TotalAmount, err = ParseDecimal(totalStr); err != nil {
		return model.Trade{}, err
	}
	if t.TradeDate, err = ParseTime(dateStr); err != nil {
		return model.Trade{}, err
	}
	if t.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Trade{}, err
	}

	return t, nil
}
