package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/testutil"
)

func newTransactionHandler(t *testing.T, db *sql.DB) *TransactionHandler {
	t.Helper()
	return NewTransactionHandler(
		repository.NewUserRepository(db),
		repository.NewInvestorRepository(db),
		newTestEngine(t, db),
	)
}

func listTransactions(t *testing.T, h *TransactionHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/transaction?"+query, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	return rec
}

func TestTransactionHandler_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.NewUser().WithLineUserID("U1").Build(t, db)
	investor := testutil.NewInvestor(user.ID).Self().Build(t, db)
	tsmc := testutil.NewSecurity("2330", "台積電").Build(t, db)
	honhai := testutil.NewSecurity("2317", "鴻海").Build(t, db)

	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	testutil.NewTrade(investor.ID, tsmc.ID).WithDate(day(1)).Build(t, db)
	testutil.NewTrade(investor.ID, tsmc.ID).WithDate(day(10)).Build(t, db)
	testutil.NewTrade(investor.ID, honhai.ID).WithDate(day(20)).Build(t, db)

	handler := newTransactionHandler(t, db)

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) []model.Trade {
		t.Helper()
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var trades []model.Trade
		if err := json.NewDecoder(rec.Body).Decode(&trades); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		return trades
	}

	t.Run("lists all trades in order", func(t *testing.T) {
		trades := decode(t, listTransactions(t, handler, "userId=U1"))
		if len(trades) != 3 {
			t.Fatalf("Expected 3 trades, got %d", len(trades))
		}
		if !trades[0].TradeDate.Before(trades[1].TradeDate) {
			t.Errorf("Expected chronological order, got %v then %v", trades[0].TradeDate, trades[1].TradeDate)
		}
	})

	t.Run("filters by security", func(t *testing.T) {
		trades := decode(t, listTransactions(t, handler, "userId=U1&security=2317"))
		if len(trades) != 1 || trades[0].SecurityID != "2317" {
			t.Errorf("Expected one 2317 trade, got %+v", trades)
		}
	})

	t.Run("filters by date range", func(t *testing.T) {
		trades := decode(t, listTransactions(t, handler, "userId=U1&from=2026-03-05&to=2026-03-15"))
		if len(trades) != 1 {
			t.Errorf("Expected 1 trade in range, got %d", len(trades))
		}
	})

	t.Run("rejects an inverted date range", func(t *testing.T) {
		if rec := listTransactions(t, handler, "userId=U1&from=2026-03-15&to=2026-03-05"); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		if rec := listTransactions(t, handler, "userId=U1&from=not-a-date"); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown user returns 404", func(t *testing.T) {
		if rec := listTransactions(t, handler, "userId=Unobody"); rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})
}
