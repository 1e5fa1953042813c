package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the derived position of one investor in one security.
// Quantity and TotalInvested never go negative; AvgCost only changes on
// buys. A holding whose quantity reaches zero is deleted, so every row
// in the holding table represents an open position.
//
// TotalInvested is maintained incrementally alongside the trade log
// rather than recomputed as quantity times average cost, to avoid
// rounding drift between the two.
type Holding struct {
	InvestorID    string          `json:"investorId"`
	SecurityID    string          `json:"securityId"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avgCost"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	UpdatedAt     time.Time       `json:"updatedAt,omitempty"`
}

// RealizedPnL records the profit or loss locked in by one sell,
// measured against the average cost at the time of sale. One row is
// written per sell trade.
type RealizedPnL struct {
	ID           string          `json:"id"`
	InvestorID   string          `json:"investorId"`
	SecurityID   string          `json:"securityId"`
	TradeID      string          `json:"tradeId"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
	TradeDate    time.Time       `json:"tradeDate"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
}

// RealizedSummary aggregates realized P&L per security.
type RealizedSummary struct {
	SecurityID   string          `json:"securityId"`
	SecurityName string          `json:"securityName,omitempty"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
}
