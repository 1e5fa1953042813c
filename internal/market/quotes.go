package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// QuoteService serves market quotes through three layers: an in-process
// TTL cache, the durable price_cache table, and the Yahoo Finance API.
// Concurrent requests for the same security are collapsed into a single
// upstream fetch.
type QuoteService struct {
	client       *FinanceClient
	priceRepo    *repository.PriceRepository
	securityRepo *repository.SecurityRepository
	mem          *gocache.Cache
	group        singleflight.Group
	ttl          time.Duration
}

// NewQuoteService creates a QuoteService with the given freshness window.
func NewQuoteService(client *FinanceClient, priceRepo *repository.PriceRepository, securityRepo *repository.SecurityRepository, ttl time.Duration) *QuoteService {
	return &QuoteService{
		client:       client,
		priceRepo:    priceRepo,
		securityRepo: securityRepo,
		mem:          gocache.New(ttl, 2*ttl),
		ttl:          ttl,
	}
}

// Quote returns the current quote for a security, fetching from Yahoo
// only when both cache layers are stale. A stale durable quote is
// served as a last resort when the upstream fetch fails.
func (s *QuoteService) Quote(ctx context.Context, securityID string) (model.Quote, error) {
	if cached, found := s.mem.Get(securityID); found {
		return cached.(model.Quote), nil
	}

	result, err, _ := s.group.Do(securityID, func() (interface{}, error) {
		return s.lookup(ctx, securityID)
	})
	if err != nil {
		return model.Quote{}, err
	}
	return result.(model.Quote), nil
}

// CurrentPrice returns just the current price for a security.
func (s *QuoteService) CurrentPrice(ctx context.Context, securityID string) (decimal.Decimal, error) {
	q, err := s.Quote(ctx, securityID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return q.CurrentPrice, nil
}

// HistoricalClose returns the closing price for a security on the given
// day, or the nearest trading day before it.
func (s *QuoteService) HistoricalClose(ctx context.Context, securityID string, day time.Time) (decimal.Decimal, error) {
	symbols, err := s.symbolsFor(ctx, securityID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	// Reach back a week so weekends and holidays still land on a bar.
	start := day.AddDate(0, 0, -7)
	end := day.AddDate(0, 0, 1)

	var lastErr error
	for _, symbol := range symbols {
		chart, err := s.client.FetchRange(ctx, symbol, start, end)
		if err != nil {
			lastErr = err
			continue
		}
		if bar, ok := chart.CloseOnOrBefore(day); ok {
			return decimal.NewFromFloat(bar.Close).Round(4), nil
		}
		lastErr = fmt.Errorf("no close found for %s on or before %s", symbol, day.Format("2006-01-02"))
	}
	return decimal.Decimal{}, fmt.Errorf("%w: %v", apperrors.ErrPriceUnavailable, lastErr)
}

// Refresh forces an upstream fetch for a security and updates both
// cache layers. Used by the background refresh job.
func (s *QuoteService) Refresh(ctx context.Context, securityID string) error {
	quote, err := s.fetch(ctx, securityID)
	if err != nil {
		return err
	}
	s.store(ctx, quote)
	return nil
}

func (s *QuoteService) lookup(ctx context.Context, securityID string) (model.Quote, error) {
	stored, storedErr := s.priceRepo.Get(ctx, securityID)
	if storedErr == nil && time.Since(stored.FetchedAt) < s.ttl {
		s.mem.Set(securityID, stored, gocache.DefaultExpiration)
		return stored, nil
	}

	quote, err := s.fetch(ctx, securityID)
	if err != nil {
		if storedErr == nil {
			log.Printf("Serving stale quote for %s after fetch failure: %v", securityID, err)
			return stored, nil
		}
		return model.Quote{}, fmt.Errorf("%w: %v", apperrors.ErrPriceUnavailable, err)
	}

	s.store(ctx, quote)
	return quote, nil
}

func (s *QuoteService) fetch(ctx context.Context, securityID string) (model.Quote, error) {
	symbols, err := s.symbolsFor(ctx, securityID)
	if err != nil {
		return model.Quote{}, err
	}

	var lastErr error
	for _, symbol := range symbols {
		chart, err := s.client.FetchRecent(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		latest, ok := chart.LatestClose()
		if !ok {
			lastErr = fmt.Errorf("no usable close for %s", symbol)
			continue
		}

		quote := model.Quote{
			SecurityID:   securityID,
			CurrentPrice: decimal.NewFromFloat(latest.Close).Round(4),
			FetchedAt:    time.Now().UTC(),
		}
		if prev, ok := chart.PreviousClose(); ok {
			quote.PreviousClose = decimal.NewFromFloat(prev.Close).Round(4)
			if quote.PreviousClose.IsPositive() {
				quote.ChangePercent = quote.CurrentPrice.Sub(quote.PreviousClose).
					Div(quote.PreviousClose).Mul(decimal.NewFromInt(100)).Round(2)
			}
		}
		return quote, nil
	}
	return model.Quote{}, lastErr
}

func (s *QuoteService) store(ctx context.Context, quote model.Quote) {
	s.mem.Set(quote.SecurityID, quote, gocache.DefaultExpiration)
	if err := s.priceRepo.Upsert(ctx, &quote); err != nil {
		log.Printf("Failed to persist quote for %s: %v", quote.SecurityID, err)
	}
}

// symbolsFor builds the Yahoo symbols to try for a security. TPEX
// listings trade under .TWO; everything else under .TW. The other
// suffix is kept as a fallback for securities with a stale market
// column.
func (s *QuoteService) symbolsFor(ctx context.Context, securityID string) ([]string, error) {
	sec, err := s.securityRepo.GetByID(ctx, securityID)
	if err != nil && !errors.Is(err, apperrors.ErrSecurityNotFound) {
		return nil, err
	}
	if sec.Market == "TPEX" || sec.Market == "OTC" {
		return []string{securityID + ".TWO", securityID + ".TW"}, nil
	}
	return []string{securityID + ".TW", securityID + ".TWO"}, nil
}
