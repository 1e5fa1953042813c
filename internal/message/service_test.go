package message

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/fees"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/market"
	"github.com/twledger/stock-ledger-backend/internal/parser"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/testutil"
)

// fakeQuotes serves fixed prices for both parsing and reporting.
type fakeQuotes struct {
	prices map[string]string
}

func (f *fakeQuotes) CurrentPrice(_ context.Context, securityID string) (decimal.Decimal, error) {
	if p, ok := f.prices[securityID]; ok {
		return decimal.RequireFromString(p), nil
	}
	return decimal.Decimal{}, apperrors.ErrPriceUnavailable
}

func (f *fakeQuotes) HistoricalClose(_ context.Context, securityID string, _ time.Time) (decimal.Decimal, error) {
	return f.CurrentPrice(context.Background(), securityID)
}

func newTestService(t *testing.T, db *sql.DB, quotes *fakeQuotes) *Service {
	t.Helper()

	securityRepo := repository.NewSecurityRepository(db)
	investorRepo := repository.NewInvestorRepository(db)
	engine := ledger.NewEngine(
		db,
		repository.NewTradeRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRealizedPnLRepository(db),
		fees.DefaultSchedule(),
	)
	aggregator := report.NewAggregator(engine, investorRepo, securityRepo, quotes, nil)
	p := parser.New(market.NewDirectory(securityRepo), quotes)

	return NewService(repository.NewUserRepository(db), investorRepo, p, engine, aggregator)
}

func setupSecurities(t *testing.T, db *sql.DB) {
	t.Helper()
	testutil.NewSecurity("2330", "台積電").Build(t, db)
	testutil.NewSecurity("2317", "鴻海").Build(t, db)
}

func TestService_Handle_Trade(t *testing.T) {
	t.Run("buy sentence creates user, investor and position", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		setupSecurities(t, db)
		svc := newTestService(t, db, &fakeQuotes{})

		outcome, err := svc.Handle(context.Background(), "U1", "小王", "買 2330 100股 250元")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}

		if outcome.Kind != KindTrade {
			t.Fatalf("Expected trade outcome, got %s (%s)", outcome.Kind, outcome.Reason)
		}
		if !outcome.Commit.Holding.Quantity.Equal(testutil.Dec(t, "100")) {
			t.Errorf("Expected quantity 100, got %s", outcome.Commit.Holding.Quantity)
		}
		if !outcome.Commit.Trade.Fee.Equal(testutil.Dec(t, "35.63")) {
			t.Errorf("Expected fee 35.63, got %s", outcome.Commit.Trade.Fee)
		}
		if outcome.Intent.SecurityName != "台積電" {
			t.Errorf("Expected security name 台積電, got %s", outcome.Intent.SecurityName)
		}

		// Same sentence sender resolves to the same user on repeat
		if _, err := svc.Handle(context.Background(), "U1", "小王", "買 2330 50股 250元"); err != nil {
			t.Fatalf("Second Handle failed: %v", err)
		}
		var users int
		if err := db.QueryRow(`SELECT COUNT(*) FROM app_user`).Scan(&users); err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if users != 1 {
			t.Errorf("Expected 1 user, got %d", users)
		}
	})

	t.Run("third-party sentence books under the named investor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		setupSecurities(t, db)
		svc := newTestService(t, db, &fakeQuotes{})

		outcome, err := svc.Handle(context.Background(), "U1", "小王", "小明買鴻海200股 價格120")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindTrade {
			t.Fatalf("Expected trade outcome, got %s (%s)", outcome.Kind, outcome.Reason)
		}
		if outcome.Intent.InvestorName != "小明" {
			t.Errorf("Expected investor 小明, got %s", outcome.Intent.InvestorName)
		}

		var name string
		err = db.QueryRow(`SELECT name FROM investor WHERE is_self = FALSE`).Scan(&name)
		if err != nil || name != "小明" {
			t.Errorf("Expected investor row 小明, got %q (%v)", name, err)
		}
	})

	t.Run("at-market sentence uses the live quote", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		setupSecurities(t, db)
		svc := newTestService(t, db, &fakeQuotes{prices: map[string]string{"2330": "612.5"}})

		outcome, err := svc.Handle(context.Background(), "U1", "小王", "我買 2330 10股")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindTrade {
			t.Fatalf("Expected trade outcome, got %s (%s)", outcome.Kind, outcome.Reason)
		}
		if !outcome.Commit.Trade.Price.Equal(testutil.Dec(t, "612.5")) {
			t.Errorf("Expected market price 612.5, got %s", outcome.Commit.Trade.Price)
		}
	})

	t.Run("oversell is rejected with a reason, not an error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		setupSecurities(t, db)
		svc := newTestService(t, db, &fakeQuotes{})

		if _, err := svc.Handle(context.Background(), "U1", "小王", "買 2330 100股 250元"); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "賣 2330 200股 300元")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindRejected || outcome.Reason != ReasonInsufficientHoldings {
			t.Errorf("Expected insufficient_holdings rejection, got %s (%s)", outcome.Kind, outcome.Reason)
		}
	})

	t.Run("chatter is rejected with the parser reason", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := newTestService(t, db, &fakeQuotes{})

		outcome, err := svc.Handle(context.Background(), "U1", "小王", "今天天氣真好")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindRejected || outcome.Reason != string(parser.ReasonNoSide) {
			t.Errorf("Expected no_trade_verb rejection, got %s (%s)", outcome.Kind, outcome.Reason)
		}
	})
}

func TestService_Handle_Commands(t *testing.T) {
	db := testutil.SetupTestDB(t)
	setupSecurities(t, db)
	svc := newTestService(t, db, &fakeQuotes{prices: map[string]string{"2330": "300", "2317": "120"}})

	seed := []string{
		"買 2330 100股 250元",
		"賣 2330 50股 300元",
		"小明買鴻海200股 價格120",
	}
	for _, text := range seed {
		if _, err := svc.Handle(context.Background(), "U1", "小王", text); err != nil {
			t.Fatalf("Seeding %q failed: %v", text, err)
		}
	}

	t.Run("portfolio command reports own positions", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "持股")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindPortfolio {
			t.Fatalf("Expected portfolio outcome, got %s", outcome.Kind)
		}
		if len(outcome.Report.Lines) != 1 || outcome.Report.Lines[0].SecurityID != "2330" {
			t.Errorf("Expected one 2330 line, got %+v", outcome.Report.Lines)
		}
	})

	t.Run("portfolio command accepts an investor name", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "持股 小明")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Report.InvestorName != "小明" {
			t.Errorf("Expected 小明's report, got %s", outcome.Report.InvestorName)
		}
	})

	t.Run("portfolio for an unknown investor is rejected, not an error", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "持股 路人")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindRejected || outcome.Reason != ReasonUnknownInvestor {
			t.Errorf("Expected unknown_investor rejection, got %s (%s)", outcome.Kind, outcome.Reason)
		}
	})

	t.Run("pnl for an unknown investor is rejected, not an error", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "損益 路人")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindRejected || outcome.Reason != ReasonUnknownInvestor {
			t.Errorf("Expected unknown_investor rejection, got %s (%s)", outcome.Kind, outcome.Reason)
		}
	})

	t.Run("pnl command reports realized results", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "損益")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindRealized {
			t.Fatalf("Expected realized outcome, got %s", outcome.Kind)
		}
		if len(outcome.Realized) != 1 {
			t.Fatalf("Expected 1 realized summary, got %d", len(outcome.Realized))
		}
		if !outcome.Realized[0].GainLoss.Equal(testutil.Dec(t, "2433.62")) {
			t.Errorf("Expected gain 2433.62, got %s", outcome.Realized[0].GainLoss)
		}
	})

	t.Run("ranking command lists both investors", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "排行")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindRanking {
			t.Fatalf("Expected ranking outcome, got %s", outcome.Kind)
		}
		if len(outcome.Ranking) != 2 {
			t.Errorf("Expected 2 ranking entries, got %d", len(outcome.Ranking))
		}
	})

	t.Run("help command", func(t *testing.T) {
		outcome, err := svc.Handle(context.Background(), "U1", "小王", "說明")
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if outcome.Kind != KindHelp {
			t.Errorf("Expected help outcome, got %s", outcome.Kind)
		}
	})
}
