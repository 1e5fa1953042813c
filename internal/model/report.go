package model

import "github.com/shopspring/decimal"

// PositionLine is one security's slice of a position report. When no
// market quote could be obtained, PriceAvailable is false and the
// price-derived fields are zero; the rest of the report is unaffected.
type PositionLine struct {
	SecurityID     string          `json:"securityId"`
	SecurityName   string          `json:"securityName,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	AvgCost        decimal.Decimal `json:"avgCost"`
	TotalInvested  decimal.Decimal `json:"totalInvested"`
	BreakEvenPrice decimal.Decimal `json:"breakEvenPrice"`
	PriceAvailable bool            `json:"priceAvailable"`
	CurrentPrice   decimal.Decimal `json:"currentPrice,omitempty"`
	MarketValue    decimal.Decimal `json:"marketValue,omitempty"`
	Unrealized     decimal.Decimal `json:"unrealizedGainLoss,omitempty"`
	UnrealizedPct  decimal.Decimal `json:"unrealizedGainLossPct,omitempty"`
}

// PositionReport summarises one investor's open positions. Totals cover
// priced lines only for market value and unrealized gain; invested and
// realized totals are always complete.
type PositionReport struct {
	InvestorName    string          `json:"investorName"`
	Lines           []PositionLine  `json:"holdings"`
	TotalInvested   decimal.Decimal `json:"totalInvested"`
	TotalValue      decimal.Decimal `json:"totalValue"`
	TotalUnrealized decimal.Decimal `json:"totalUnrealizedGainLoss"`
	TotalRealized   decimal.Decimal `json:"totalRealizedGainLoss"`
	TotalGainLoss   decimal.Decimal `json:"totalGainLoss"`
	ReturnPct       decimal.Decimal `json:"returnPct"`
}

// Ranking entry kinds.
const (
	RankingKindInvestor  = "investor"
	RankingKindBenchmark = "benchmark"
)

// RankingEntry is one row of the cross-investor leaderboard. Benchmark
// rows carry a period return and no invested amount.
type RankingEntry struct {
	Rank      int             `json:"rank"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	ReturnPct decimal.Decimal `json:"returnPct"`
	Invested  decimal.Decimal `json:"totalInvested,omitempty"`
	Value     decimal.Decimal `json:"currentValue,omitempty"`
}
