package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one immutable buy or sell fact in the append-only ledger.
// Trades are never updated or deleted; holdings are always rebuildable
// by folding the trade log in chronological order.
//
// TotalAmount carries the signed net cash effect: negative for a buy
// (amount plus fee), positive for a sell (amount minus fee and tax).
type Trade struct {
	ID          string          `json:"id"`
	InvestorID  string          `json:"investorId"`
	SecurityID  string          `json:"securityId"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Fee         decimal.Decimal `json:"fee"`
	Tax         decimal.Decimal `json:"tax"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TradeDate   time.Time       `json:"tradeDate"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
}

// TradeResponse is a trade enriched with investor and security names for
// API responses.
type TradeResponse struct {
	ID           string          `json:"id"`
	InvestorName string          `json:"investorName"`
	SecurityID   string          `json:"securityId"`
	SecurityName string          `json:"securityName,omitempty"`
	Side         Side            `json:"side"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Fee          decimal.Decimal `json:"fee"`
	Tax          decimal.Decimal `json:"tax"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	TradeDate    time.Time       `json:"tradeDate"`
}

// TradeFilter narrows trade queries. Zero values mean "no filter".
type TradeFilter struct {
	SecurityID string
	From       time.Time
	To         time.Time
}

// TradeIntent is the structured result of parsing one trade sentence.
// InvestorName is "我" when the sentence refers to the ledger owner.
type TradeIntent struct {
	InvestorName string          `json:"investorName"`
	Self         bool            `json:"self"`
	Side         Side            `json:"side"`
	SecurityID   string          `json:"securityId"`
	SecurityName string          `json:"securityName,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	AtMarket     bool            `json:"atMarket"`
}
