package testutil

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
)

// MockQuotes is a price source backed by fixed maps. Lookups missing
// from the maps return apperrors.ErrPriceUnavailable, which is how the
// degraded-quote paths are exercised.
type MockQuotes struct {
	// Prices maps security id to the current price.
	Prices map[string]string
	// Historical maps security id to the close returned for any past day.
	Historical map[string]string
}

// NewMockQuotes creates an empty MockQuotes; every lookup misses.
func NewMockQuotes() *MockQuotes {
	return &MockQuotes{Prices: map[string]string{}, Historical: map[string]string{}}
}

// WithPrice sets the current price for a security.
func (m *MockQuotes) WithPrice(securityID, price string) *MockQuotes {
	m.Prices[securityID] = price
	return m
}

// WithHistorical sets the historical close for a security.
func (m *MockQuotes) WithHistorical(securityID, price string) *MockQuotes {
	m.Historical[securityID] = price
	return m
}

// CurrentPrice implements the quote source interfaces.
func (m *MockQuotes) CurrentPrice(_ context.Context, securityID string) (decimal.Decimal, error) {
	if p, ok := m.Prices[securityID]; ok {
		return decimal.RequireFromString(p), nil
	}
	return decimal.Decimal{}, apperrors.ErrPriceUnavailable
}

// HistoricalClose implements the report price source.
func (m *MockQuotes) HistoricalClose(_ context.Context, securityID string, _ time.Time) (decimal.Decimal, error) {
	if p, ok := m.Historical[securityID]; ok {
		return decimal.RequireFromString(p), nil
	}
	return decimal.Decimal{}, apperrors.ErrPriceUnavailable
}
