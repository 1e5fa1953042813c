// Package fees computes Taiwan equity trading costs: the broker fee
// charged on both sides and the securities transaction tax charged on
// sells only. All results are rounded half-up to two decimal places.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
)

// Default rates. Overridable through configuration so a rate change
// never touches ledger logic.
var (
	DefaultFeeRate = decimal.RequireFromString("0.001425")
	DefaultTaxRate = decimal.RequireFromString("0.003")
)

// Schedule holds the fee and tax rates applied to every trade.
// The zero value means free trading, which is a valid configuration.
type Schedule struct {
	FeeRate decimal.Decimal
	TaxRate decimal.Decimal
}

// DefaultSchedule returns the standard Taiwan market schedule.
func DefaultSchedule() Schedule {
	return Schedule{FeeRate: DefaultFeeRate, TaxRate: DefaultTaxRate}
}

// Breakdown itemises the costs of one trade.
//
// NetAmount is the signed cash effect: negative for a buy (amount plus
// fee leaves the account), positive for a sell (amount minus fee and
// tax arrives).
type Breakdown struct {
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Tax       decimal.Decimal `json:"tax"`
	NetAmount decimal.Decimal `json:"netAmount"`
}

// ForTrade computes the fee, tax and net cash amount for a trade of the
// given quantity at the given price per share. Returns
// apperrors.ErrInvalidAmount when quantity or price is not positive.
func (s Schedule) ForTrade(side model.Side, quantity, price decimal.Decimal) (Breakdown, error) {
	if !quantity.IsPositive() || !price.IsPositive() {
		return Breakdown{}, apperrors.ErrInvalidAmount
	}

	amount := quantity.Mul(price)
	fee := amount.Mul(s.FeeRate).Round(2)

	b := Breakdown{
		Amount: amount.Round(2),
		Fee:    fee,
		Tax:    decimal.Zero,
	}

	switch side {
	case model.SideSell:
		b.Tax = amount.Mul(s.TaxRate).Round(2)
		b.NetAmount = amount.Sub(b.Fee).Sub(b.Tax).Round(2)
	default:
		b.NetAmount = amount.Add(b.Fee).Round(2).Neg()
	}

	return b, nil
}

// BreakEvenPrice returns the sale price per share at which the proceeds
// after fee and tax exactly cover the average cost including the
// buy-side fee. Solved algebraically:
//
//	breakEven = avgCost * (1 + feeRate) / (1 - feeRate - taxRate)
func (s Schedule) BreakEvenPrice(avgCost decimal.Decimal) (decimal.Decimal, error) {
	if !avgCost.IsPositive() {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}

	buyCostRate := decimal.NewFromInt(1).Add(s.FeeRate)
	sellNetRate := decimal.NewFromInt(1).Sub(s.FeeRate).Sub(s.TaxRate)

	return avgCost.Mul(buyCostRate).DivRound(sellNetRate, 2), nil
}
