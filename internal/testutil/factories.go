package testutil

import (
	"database/sql"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/model"
)

// MakeID generates a unique identifier for test fixtures.
func MakeID() string {
	return uuid.New().String()
}

// MakeLineUserID generates a unique LINE user identifier.
func MakeLineUserID() string {
	return fmt.Sprintf("U%032x", rand.Int63())
}

// Dec parses a decimal literal, failing the test on bad input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Bad decimal literal %q: %v", s, err)
	}
	return d
}

// UserBuilder provides a fluent interface for creating test users.
//
// Example usage:
//
//	user := testutil.NewUser().WithDisplayName("小王").Build(t, db)
type UserBuilder struct {
	ID          string
	LineUserID  string
	DisplayName string
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	return &UserBuilder{
		ID:          MakeID(),
		LineUserID:  MakeLineUserID(),
		DisplayName: "Test User",
	}
}

// WithLineUserID sets a custom LINE user identifier.
func (b *UserBuilder) WithLineUserID(id string) *UserBuilder {
	b.LineUserID = id
	return b
}

// WithDisplayName sets a custom display name.
func (b *UserBuilder) WithDisplayName(name string) *UserBuilder {
	b.DisplayName = name
	return b
}

// Build creates the user in the database and returns it.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) model.User {
	t.Helper()

	query := `INSERT INTO app_user (id, line_user_id, display_name) VALUES (?, ?, ?)`
	if _, err := db.Exec(query, b.ID, b.LineUserID, b.DisplayName); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return model.User{ID: b.ID, LineUserID: b.LineUserID, DisplayName: b.DisplayName}
}

// InvestorBuilder provides a fluent interface for creating test investors.
type InvestorBuilder struct {
	ID     string
	UserID string
	Name   string
	IsSelf bool
}

// NewInvestor creates an InvestorBuilder owned by the given user.
func NewInvestor(userID string) *InvestorBuilder {
	return &InvestorBuilder{
		ID:     MakeID(),
		UserID: userID,
		Name:   "小明",
	}
}

// WithName sets a custom investor name.
func (b *InvestorBuilder) WithName(name string) *InvestorBuilder {
	b.Name = name
	return b
}

// Self marks the investor as the ledger owner.
func (b *InvestorBuilder) Self() *InvestorBuilder {
	b.Name = model.SelfInvestorName
	b.IsSelf = true
	return b
}

// Build creates the investor in the database and returns it.
func (b *InvestorBuilder) Build(t *testing.T, db *sql.DB) model.Investor {
	t.Helper()

	query := `INSERT INTO investor (id, user_id, name, is_self) VALUES (?, ?, ?, ?)`
	if _, err := db.Exec(query, b.ID, b.UserID, b.Name, b.IsSelf); err != nil {
		t.Fatalf("Failed to create test investor: %v", err)
	}

	return model.Investor{ID: b.ID, UserID: b.UserID, Name: b.Name, IsSelf: b.IsSelf}
}

// SecurityBuilder provides a fluent interface for creating dim_security rows.
type SecurityBuilder struct {
	ID     string
	NameZh string
	Market string
}

// NewSecurity creates a SecurityBuilder with defaults for a TWSE listing.
func NewSecurity(id, nameZh string) *SecurityBuilder {
	return &SecurityBuilder{ID: id, NameZh: nameZh, Market: "TWSE"}
}

// WithMarket sets a custom market.
func (b *SecurityBuilder) WithMarket(market string) *SecurityBuilder {
	b.Market = market
	return b
}

// Build creates the security in the database and returns it.
func (b *SecurityBuilder) Build(t *testing.T, db *sql.DB) model.Security {
	t.Helper()

	query := `INSERT INTO dim_security (security_id, name_zh, market, status) VALUES (?, ?, ?, 'listed')`
	if _, err := db.Exec(query, b.ID, b.NameZh, b.Market); err != nil {
		t.Fatalf("Failed to create test security: %v", err)
	}

	return model.Security{ID: b.ID, NameZh: b.NameZh, Market: b.Market, Status: "listed"}
}

// TradeBuilder provides a fluent interface for creating trade rows
// directly, bypassing the ledger engine. Useful for replay and listing
// tests.
type TradeBuilder struct {
	ID          string
	InvestorID  string
	SecurityID  string
	Side        model.Side
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	Tax         decimal.Decimal
	TotalAmount decimal.Decimal
	TradeDate   time.Time
}

// NewTrade creates a TradeBuilder for a buy of 100 shares at 100.
func NewTrade(investorID, securityID string) *TradeBuilder {
	return &TradeBuilder{
		ID:          MakeID(),
		InvestorID:  investorID,
		SecurityID:  securityID,
		Side:        model.SideBuy,
		Quantity:    decimal.NewFromInt(100),
		Price:       decimal.NewFromInt(100),
		Fee:         decimal.Zero,
		Tax:         decimal.Zero,
		TotalAmount: decimal.NewFromInt(-10000),
		TradeDate:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}

// Sell switches the trade to a sell side.
func (b *TradeBuilder) Sell() *TradeBuilder {
	b.Side = model.SideSell
	b.TotalAmount = b.TotalAmount.Neg()
	return b
}

// WithQuantity sets a custom quantity.
func (b *TradeBuilder) WithQuantity(q decimal.Decimal) *TradeBuilder {
	b.Quantity = q
	return b
}

// WithPrice sets a custom price.
func (b *TradeBuilder) WithPrice(p decimal.Decimal) *TradeBuilder {
	b.Price = p
	return b
}

// WithDate sets a custom trade date.
func (b *TradeBuilder) WithDate(d time.Time) *TradeBuilder {
	b.TradeDate = d
	return b
}

// Build creates the trade in the database and returns it.
func (b *TradeBuilder) Build(t *testing.T, db *sql.DB) model.Trade {
	t.Helper()

	query := `
		INSERT INTO trade (id, investor_id, security_id, side, quantity, price, fee, tax, total_amount, trade_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, b.ID, b.InvestorID, b.SecurityID, string(b.Side),
		b.Quantity.String(), b.Price.String(), b.Fee.String(), b.Tax.String(),
		b.TotalAmount.String(), b.TradeDate.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("Failed to create test trade: %v", err)
	}

	return model.Trade{
		ID: b.ID, InvestorID: b.InvestorID, SecurityID: b.SecurityID,
		Side: b.Side, Quantity: b.Quantity, Price: b.Price,
		Fee: b.Fee, Tax: b.Tax, TotalAmount: b.TotalAmount, TradeDate: b.TradeDate,
	}
}

// HoldingBuilder provides a fluent interface for creating holding rows.
type HoldingBuilder struct {
	InvestorID    string
	SecurityID    string
	Quantity      decimal.Decimal
	AvgCost       decimal.Decimal
	TotalInvested decimal.Decimal
}

// NewHolding creates a HoldingBuilder for 100 shares at average cost 100.
func NewHolding(investorID, securityID string) *HoldingBuilder {
	return &HoldingBuilder{
		InvestorID:    investorID,
		SecurityID:    securityID,
		Quantity:      decimal.NewFromInt(100),
		AvgCost:       decimal.NewFromInt(100),
		TotalInvested: decimal.NewFromInt(10000),
	}
}

// WithPosition sets quantity and average cost, deriving total invested.
func (b *HoldingBuilder) WithPosition(quantity, avgCost decimal.Decimal) *HoldingBuilder {
	b.Quantity = quantity
	b.AvgCost = avgCost
	b.TotalInvested = quantity.Mul(avgCost)
	return b
}

// Build creates the holding in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	query := `
		INSERT INTO holding (investor_id, security_id, quantity, avg_cost, total_invested)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, b.InvestorID, b.SecurityID,
		b.Quantity.String(), b.AvgCost.String(), b.TotalInvested.String())
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}

	return model.Holding{
		InvestorID: b.InvestorID, SecurityID: b.SecurityID,
		Quantity: b.Quantity, AvgCost: b.AvgCost, TotalInvested: b.TotalInvested,
	}
}

// CreateQuote writes a price_cache row fetched at the given time.
func CreateQuote(t *testing.T, db *sql.DB, securityID, price string, fetchedAt time.Time) {
	t.Helper()

	query := `
		INSERT INTO price_cache (security_id, current_price, previous_close, change_percent, fetched_at)
		VALUES (?, ?, ?, '0', ?)
		ON CONFLICT(security_id) DO UPDATE SET
			current_price = excluded.current_price,
			fetched_at = excluded.fetched_at
	`
	if _, err := db.Exec(query, securityID, price, price, fetchedAt.UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("Failed to create test quote: %v", err)
	}
}
