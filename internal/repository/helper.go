package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Mutating repository methods accept it so the ledger engine can run a
// trade append and its holding update inside one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TimestampFormat stores created_at with fixed-width nanoseconds so the
// TEXT column sorts chronologically. RFC3339Nano trims trailing zeros,
// which breaks lexicographic order.
const TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

// decimalFromStoredFloat converts a SQL aggregate over TEXT decimal
// columns back to a decimal. Stored values carry at most four decimal
// places, so rounding there removes float artifacts.
func decimalFromStoredFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(4)
}

// ParseDecimal parses a TEXT decimal column. Empty strings scan as zero
// so nullable columns do not need separate handling.
func ParseDecimal(str string) (decimal.Decimal, error) {
	if str == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", str, err)
	}
	return d, nil
}
