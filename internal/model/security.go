package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Security is a row of the dim_security reference table. The table is
// maintained by an external daily job; this service only reads it.
type Security struct {
	ID        string    `json:"securityId"`
	NameZh    string    `json:"nameZh"`
	Market    string    `json:"market"`
	Industry  string    `json:"industry,omitempty"`
	ISIN      string    `json:"isin,omitempty"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Quote is one cached market quote for a security.
type Quote struct {
	SecurityID    string          `json:"securityId"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	FetchedAt     time.Time       `json:"fetchedAt"`
}
