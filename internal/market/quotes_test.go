package market

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/testutil"
)

func TestQuoteService_Quote(t *testing.T) {
	day := time.Date(2026, 8, 24, 5, 0, 0, 0, time.UTC)

	t.Run("fetches from upstream and persists the quote", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewSecurity("2330", "台積電").Build(t, db)

		var hits atomic.Int64
		client := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if r.URL.Path != "/2330.TW" {
				t.Errorf("Expected .TW symbol first, got %s", r.URL.Path)
			}
			fmt.Fprint(w, chartJSON("2330.TW",
				[]int64{day.Unix(), day.AddDate(0, 0, 1).Unix()},
				[]float64{600, 612.5}))
		})
		priceRepo := repository.NewPriceRepository(db)
		quotes := NewQuoteService(client, priceRepo, repository.NewSecurityRepository(db), time.Hour)

		quote, err := quotes.Quote(context.Background(), "2330")
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		if !quote.CurrentPrice.Equal(testutil.Dec(t, "612.5")) {
			t.Errorf("Expected price 612.5, got %s", quote.CurrentPrice)
		}
		if !quote.PreviousClose.Equal(testutil.Dec(t, "600")) {
			t.Errorf("Expected previous close 600, got %s", quote.PreviousClose)
		}
		if !quote.ChangePercent.Equal(testutil.Dec(t, "2.08")) {
			t.Errorf("Expected change 2.08%%, got %s", quote.ChangePercent)
		}

		stored, err := priceRepo.Get(context.Background(), "2330")
		if err != nil {
			t.Fatalf("Expected a persisted quote: %v", err)
		}
		if !stored.CurrentPrice.Equal(quote.CurrentPrice) {
			t.Errorf("Persisted price %s does not match quote %s", stored.CurrentPrice, quote.CurrentPrice)
		}

		// Second call is served from the in-process cache.
		if _, err := quotes.Quote(context.Background(), "2330"); err != nil {
			t.Fatalf("Cached quote failed: %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("Expected 1 upstream hit, got %d", hits.Load())
		}
	})

	t.Run("fresh stored quote skips the upstream fetch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewSecurity("2330", "台積電").Build(t, db)
		testutil.CreateQuote(t, db, "2330", "605", time.Now().UTC())

		var hits atomic.Int64
		client := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		})
		quotes := NewQuoteService(client, repository.NewPriceRepository(db), repository.NewSecurityRepository(db), time.Hour)

		quote, err := quotes.Quote(context.Background(), "2330")
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		if !quote.CurrentPrice.Equal(testutil.Dec(t, "605")) {
			t.Errorf("Expected stored price 605, got %s", quote.CurrentPrice)
		}
		if hits.Load() != 0 {
			t.Errorf("Expected no upstream hits, got %d", hits.Load())
		}
	})

	t.Run("serves a stale stored quote when the fetch fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewSecurity("2330", "台積電").Build(t, db)
		testutil.CreateQuote(t, db, "2330", "598", time.Now().UTC().Add(-24*time.Hour))

		client := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})
		quotes := NewQuoteService(client, repository.NewPriceRepository(db), repository.NewSecurityRepository(db), time.Hour)

		quote, err := quotes.Quote(context.Background(), "2330")
		if err != nil {
			t.Fatalf("Expected the stale quote, got error: %v", err)
		}
		if !quote.CurrentPrice.Equal(testutil.Dec(t, "598")) {
			t.Errorf("Expected stale price 598, got %s", quote.CurrentPrice)
		}
	})

	t.Run("TPEX listings try the .TWO symbol first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewSecurity("6488", "環球晶").WithMarket("TPEX").Build(t, db)

		client := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/6488.TWO" {
				t.Errorf("Expected .TWO symbol first, got %s", r.URL.Path)
			}
			fmt.Fprint(w, chartJSON("6488.TWO", []int64{day.Unix()}, []float64{850}))
		})
		quotes := NewQuoteService(client, repository.NewPriceRepository(db), repository.NewSecurityRepository(db), time.Hour)

		quote, err := quotes.Quote(context.Background(), "6488")
		if err != nil {
			t.Fatalf("Quote failed: %v", err)
		}
		if !quote.CurrentPrice.Equal(testutil.Dec(t, "850")) {
			t.Errorf("Expected price 850, got %s", quote.CurrentPrice)
		}
	})
}

func TestQuoteService_HistoricalClose(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.NewSecurity("0050", "元大台灣50").Build(t, db)

	friday := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)
	client := newChartServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON("0050.TW", []int64{friday.Unix()}, []float64{182.35}))
	})
	quotes := NewQuoteService(client, repository.NewPriceRepository(db), repository.NewSecurityRepository(db), time.Hour)

	// Ask for the following Sunday; the Friday bar should answer.
	price, err := quotes.HistoricalClose(context.Background(), "0050", friday.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("HistoricalClose failed: %v", err)
	}
	if !price.Equal(testutil.Dec(t, "182.35")) {
		t.Errorf("Expected close 182.35, got %s", price)
	}
}
