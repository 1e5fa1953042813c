package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/fees"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/testutil"
)

func newTestEngine(t *testing.T, db *sql.DB) *Engine {
	t.Helper()
	return NewEngine(
		db,
		repository.NewTradeRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRealizedPnLRepository(db),
		fees.DefaultSchedule(),
	)
}

func setupInvestor(t *testing.T, db *sql.DB) model.Investor {
	t.Helper()
	user := testutil.NewUser().Build(t, db)
	testutil.NewSecurity("2330", "台積電").Build(t, db)
	return testutil.NewInvestor(user.ID).Self().Build(t, db)
}

// recordDay tracks a distinct trade date per recorded trade so the
// chronological trade log order matches the recording order.
var recordDay int

func record(t *testing.T, e *Engine, investorID string, side model.Side, qty, price string) CommitResult {
	t.Helper()
	recordDay++
	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, recordDay)
	result, err := e.Record(context.Background(), investorID, "2330", side,
		testutil.Dec(t, qty), testutil.Dec(t, price), date, "")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	return result
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(testutil.Dec(t, want)) {
		t.Errorf("Expected %s %s, got %s", name, want, got)
	}
}

func TestEngine_Record_Buy(t *testing.T) {
	t.Run("first buy opens position with fee excluded from cost", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		result := record(t, engine, investor.ID, model.SideBuy, "100", "250")

		assertDecimal(t, "fee", result.Trade.Fee, "35.63")
		assertDecimal(t, "tax", result.Trade.Tax, "0")
		assertDecimal(t, "total amount", result.Trade.TotalAmount, "-25035.63")
		assertDecimal(t, "quantity", result.Holding.Quantity, "100")
		assertDecimal(t, "avg cost", result.Holding.AvgCost, "250")
		assertDecimal(t, "invested", result.Holding.TotalInvested, "25000")
	})

	t.Run("second buy moves average to the weighted price", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		record(t, engine, investor.ID, model.SideBuy, "100", "250")
		result := record(t, engine, investor.ID, model.SideBuy, "100", "300")

		assertDecimal(t, "quantity", result.Holding.Quantity, "200")
		assertDecimal(t, "avg cost", result.Holding.AvgCost, "275")
		assertDecimal(t, "invested", result.Holding.TotalInvested, "55000")
	})

	t.Run("buy order does not change the final average", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)
		user2 := testutil.NewUser().Build(t, db)
		investor2 := testutil.NewInvestor(user2.ID).Self().Build(t, db)

		record(t, engine, investor.ID, model.SideBuy, "100", "250")
		record(t, engine, investor.ID, model.SideBuy, "200", "300")

		record(t, engine, investor2.ID, model.SideBuy, "200", "300")
		result := record(t, engine, investor2.ID, model.SideBuy, "100", "250")

		first, err := engine.Position(context.Background(), investor.ID, "2330")
		if err != nil {
			t.Fatalf("Position failed: %v", err)
		}
		if !first.AvgCost.Equal(result.Holding.AvgCost) {
			t.Errorf("Expected equal averages, got %s and %s", first.AvgCost, result.Holding.AvgCost)
		}
		assertDecimal(t, "avg cost", result.Holding.AvgCost, "283.3333")
	})
}

func TestEngine_Record_Sell(t *testing.T) {
	t.Run("partial sell realizes gain against average cost", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		record(t, engine, investor.ID, model.SideBuy, "100", "250")
		result := record(t, engine, investor.ID, model.SideSell, "50", "300")

		if result.Realized == nil {
			t.Fatal("Expected realized P&L row")
		}
		assertDecimal(t, "fee", result.Trade.Fee, "21.38")
		assertDecimal(t, "tax", result.Trade.Tax, "45")
		assertDecimal(t, "proceeds", result.Realized.Proceeds, "14933.62")
		assertDecimal(t, "cost basis", result.Realized.CostBasis, "12500")
		assertDecimal(t, "gain", result.Realized.GainLoss, "2433.62")

		// Average cost is untouched by the sell
		assertDecimal(t, "quantity", result.Holding.Quantity, "50")
		assertDecimal(t, "avg cost", result.Holding.AvgCost, "250")
		assertDecimal(t, "invested", result.Holding.TotalInvested, "12500")
	})

	t.Run("selling at the average price still loses the fee and tax", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		record(t, engine, investor.ID, model.SideBuy, "100", "250")
		result := record(t, engine, investor.ID, model.SideSell, "50", "250")

		// 50*250 = 12500, fee 17.81, tax 37.50
		assertDecimal(t, "gain", result.Realized.GainLoss, "-55.31")
	})

	t.Run("full liquidation closes the position", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		record(t, engine, investor.ID, model.SideBuy, "100", "250")
		result := record(t, engine, investor.ID, model.SideSell, "100", "300")

		if !result.Closed {
			t.Error("Expected position to be closed")
		}
		if _, err := engine.Position(context.Background(), investor.ID, "2330"); !errors.Is(err, apperrors.ErrHoldingNotFound) {
			t.Errorf("Expected ErrHoldingNotFound, got %v", err)
		}

		// A later buy starts a fresh average, unrelated to history
		reopened := record(t, engine, investor.ID, model.SideBuy, "10", "500")
		assertDecimal(t, "avg cost", reopened.Holding.AvgCost, "500")
	})

	t.Run("sell exceeding the position is rejected without side effects", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		record(t, engine, investor.ID, model.SideBuy, "100", "250")

		_, err := engine.Record(context.Background(), investor.ID, "2330", model.SideSell,
			testutil.Dec(t, "200"), testutil.Dec(t, "300"), time.Now(), "")
		if !errors.Is(err, apperrors.ErrInsufficientHoldings) {
			t.Fatalf("Expected ErrInsufficientHoldings, got %v", err)
		}

		holding, err := engine.Position(context.Background(), investor.ID, "2330")
		if err != nil {
			t.Fatalf("Position failed: %v", err)
		}
		assertDecimal(t, "quantity", holding.Quantity, "100")

		trades, err := engine.Transactions(context.Background(), investor.ID, model.TradeFilter{})
		if err != nil {
			t.Fatalf("Transactions failed: %v", err)
		}
		if len(trades) != 1 {
			t.Errorf("Expected 1 trade in the log, got %d", len(trades))
		}
	})

	t.Run("sell with no position is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		engine := newTestEngine(t, db)
		investor := setupInvestor(t, db)

		_, err := engine.Record(context.Background(), investor.ID, "2330", model.SideSell,
			testutil.Dec(t, "10"), testutil.Dec(t, "300"), time.Now(), "")
		if !errors.Is(err, apperrors.ErrInsufficientHoldings) {
			t.Fatalf("Expected ErrInsufficientHoldings, got %v", err)
		}
	})
}

func TestEngine_Record_InvalidAmounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := newTestEngine(t, db)
	investor := setupInvestor(t, db)

	cases := []struct {
		name     string
		quantity string
		price    string
	}{
		{"zero quantity", "0", "250"},
		{"negative quantity", "-10", "250"},
		{"zero price", "100", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Record(context.Background(), investor.ID, "2330", model.SideBuy,
				testutil.Dec(t, tc.quantity), testutil.Dec(t, tc.price), time.Now(), "")
			if !errors.Is(err, apperrors.ErrInvalidAmount) {
				t.Errorf("Expected ErrInvalidAmount, got %v", err)
			}
		})
	}
}

func TestEngine_Realized(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := newTestEngine(t, db)
	investor := setupInvestor(t, db)

	record(t, engine, investor.ID, model.SideBuy, "100", "250")
	record(t, engine, investor.ID, model.SideSell, "50", "300")
	record(t, engine, investor.ID, model.SideSell, "25", "200")

	summaries, err := engine.Realized(context.Background(), investor.ID, "")
	if err != nil {
		t.Fatalf("Realized failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}

	s := summaries[0]
	if s.SecurityID != "2330" {
		t.Errorf("Expected security 2330, got %s", s.SecurityID)
	}
	assertDecimal(t, "quantity sold", s.QuantitySold, "75")
	// Sell 1: 14933.62 - 12500, sell 2: 4977.87 - 6250
	assertDecimal(t, "gain", s.GainLoss, "1161.49")
}

func TestEngine_Rebuild(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := newTestEngine(t, db)
	investor := setupInvestor(t, db)

	record(t, engine, investor.ID, model.SideBuy, "100", "250")
	record(t, engine, investor.ID, model.SideBuy, "100", "300")
	record(t, engine, investor.ID, model.SideSell, "150", "280")

	before, err := engine.Position(context.Background(), investor.ID, "2330")
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}

	// Corrupt the derived state, then fold the trade log back
	if _, err := db.Exec(`UPDATE holding SET quantity = '999', avg_cost = '1'`); err != nil {
		t.Fatalf("Failed to corrupt holding: %v", err)
	}

	if err := engine.Rebuild(context.Background(), investor.ID); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	after, err := engine.Position(context.Background(), investor.ID, "2330")
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if !after.Quantity.Equal(before.Quantity) || !after.AvgCost.Equal(before.AvgCost) {
		t.Errorf("Rebuild diverged: had %s@%s, got %s@%s",
			before.Quantity, before.AvgCost, after.Quantity, after.AvgCost)
	}

	summaries, err := engine.Realized(context.Background(), investor.ID, "")
	if err != nil {
		t.Fatalf("Realized failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 realized summary after rebuild, got %d", len(summaries))
	}
	assertDecimal(t, "quantity sold", summaries[0].QuantitySold, "150")
}

func TestEngine_Record_ConcurrentSamePosition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := newTestEngine(t, db)
	investor := setupInvestor(t, db)

	const workers = 8
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	qty := testutil.Dec(t, "10")
	price := testutil.Dec(t, "100")

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Record(context.Background(), investor.ID, "2330", model.SideBuy,
				qty, price, date, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent Record failed: %v", err)
		}
	}

	holding, err := engine.Position(context.Background(), investor.ID, "2330")
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	assertDecimal(t, "quantity", holding.Quantity, "80")
	assertDecimal(t, "avg cost", holding.AvgCost, "100")

	trades, err := engine.Transactions(context.Background(), investor.ID, model.TradeFilter{})
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(trades) != workers {
		t.Errorf("Expected %d trades, got %d", workers, len(trades))
	}
}

func TestEngine_Record_SameDayOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := newTestEngine(t, db)
	investor := setupInvestor(t, db)

	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	buy, err := engine.Record(context.Background(), investor.ID, "2330", model.SideBuy,
		testutil.Dec(t, "100"), testutil.Dec(t, "250"), day, "")
	if err != nil {
		t.Fatalf("Record buy failed: %v", err)
	}
	if buy.Trade.CreatedAt.IsZero() {
		t.Error("Expected a recorded created_at on the buy")
	}
	sell, err := engine.Record(context.Background(), investor.ID, "2330", model.SideSell,
		testutil.Dec(t, "100"), testutil.Dec(t, "300"), day, "")
	if err != nil {
		t.Fatalf("Record sell failed: %v", err)
	}
	if !sell.Trade.CreatedAt.After(buy.Trade.CreatedAt) {
		t.Errorf("Expected sell created_at after buy, got %v then %v",
			buy.Trade.CreatedAt, sell.Trade.CreatedAt)
	}

	trades, err := engine.Transactions(context.Background(), investor.ID, model.TradeFilter{})
	if err != nil {
		t.Fatalf("Transactions failed: %v", err)
	}
	if len(trades) != 2 || trades[0].Side != model.SideBuy || trades[1].Side != model.SideSell {
		t.Fatalf("Expected buy then sell on the same date, got %+v", trades)
	}
	if trades[0].CreatedAt.IsZero() || trades[1].CreatedAt.IsZero() {
		t.Error("Expected stored created_at timestamps to round-trip")
	}

	// A replay of the same-day pair must fold the buy before the sell.
	if err := engine.Rebuild(context.Background(), investor.ID); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	summaries, err := engine.Realized(context.Background(), investor.ID, "")
	if err != nil {
		t.Fatalf("Realized failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 realized summary, got %d", len(summaries))
	}
	assertDecimal(t, "quantity sold", summaries[0].QuantitySold, "100")
}
