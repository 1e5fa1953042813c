// Package report computes read-only performance views over ledger
// state: per-investor position summaries and the cross-investor
// leaderboard with benchmark ETFs.
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// quoteConcurrency bounds parallel price fetches per report.
const quoteConcurrency = 4

var hundred = decimal.NewFromInt(100)

// PriceSource supplies current and historical prices for report lines.
type PriceSource interface {
	CurrentPrice(ctx context.Context, securityID string) (decimal.Decimal, error)
	HistoricalClose(ctx context.Context, securityID string, day time.Time) (decimal.Decimal, error)
}

// Aggregator builds position reports and leaderboards. It only reads;
// all writes go through the ledger engine.
type Aggregator struct {
	engine       *ledger.Engine
	investorRepo *repository.InvestorRepository
	securityRepo *repository.SecurityRepository
	quotes       PriceSource
	benchmarks   []string
}

// NewAggregator creates an Aggregator ranking against the given
// benchmark securities.
func NewAggregator(engine *ledger.Engine, investorRepo *repository.InvestorRepository, securityRepo *repository.SecurityRepository, quotes PriceSource, benchmarks []string) *Aggregator {
	return &Aggregator{
		engine:       engine,
		investorRepo: investorRepo,
		securityRepo: securityRepo,
		quotes:       quotes,
		benchmarks:   benchmarks,
	}
}

// Summary builds the position report for one investor. A missing quote
// degrades its line to priceAvailable:false; it never fails the report.
func (a *Aggregator) Summary(ctx context.Context, investor model.Investor) (model.PositionReport, error) {
	holdings, err := a.engine.Positions(ctx, investor.ID)
	if err != nil {
		return model.PositionReport{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToBuildReport, err)
	}

	lines := make([]model.PositionLine, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quoteConcurrency)
	for i, h := range holdings {
		i, h := i, h
		g.Go(func() error {
			lines[i] = a.buildLine(gctx, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.PositionReport{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToBuildReport, err)
	}

	report := model.PositionReport{InvestorName: investor.Name, Lines: lines}
	for _, line := range lines {
		report.TotalInvested = report.TotalInvested.Add(line.TotalInvested)
		if line.PriceAvailable {
			report.TotalValue = report.TotalValue.Add(line.MarketValue)
			report.TotalUnrealized = report.TotalUnrealized.Add(line.Unrealized)
		}
	}

	summaries, err := a.engine.Realized(ctx, investor.ID, "")
	if err != nil {
		return model.PositionReport{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToBuildReport, err)
	}
	for _, s := range summaries {
		report.TotalRealized = report.TotalRealized.Add(s.GainLoss)
	}

	report.TotalGainLoss = report.TotalUnrealized.Add(report.TotalRealized)
	if report.TotalInvested.IsPositive() {
		report.ReturnPct = report.TotalGainLoss.Div(report.TotalInvested).Mul(hundred).Round(2)
	}
	return report, nil
}

func (a *Aggregator) buildLine(ctx context.Context, h model.Holding) model.PositionLine {
	line := model.PositionLine{
		SecurityID:    h.SecurityID,
		Quantity:      h.Quantity,
		AvgCost:       h.AvgCost,
		TotalInvested: h.TotalInvested,
	}

	if sec, err := a.securityRepo.GetByID(ctx, h.SecurityID); err == nil {
		line.SecurityName = sec.NameZh
	}
	if be, err := a.engine.Schedule().BreakEvenPrice(h.AvgCost); err == nil {
		line.BreakEvenPrice = be
	}

	price, err := a.quotes.CurrentPrice(ctx, h.SecurityID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrPriceUnavailable) {
			log.Printf("Quote lookup failed for %s: %v", h.SecurityID, err)
		}
		return line
	}

	line.PriceAvailable = true
	line.CurrentPrice = price
	line.MarketValue = h.Quantity.Mul(price).Round(2)
	line.Unrealized = line.MarketValue.Sub(h.TotalInvested).Round(2)
	if h.TotalInvested.IsPositive() {
		line.UnrealizedPct = line.Unrealized.Div(h.TotalInvested).Mul(hundred).Round(2)
	}
	return line
}

// Leaderboard ranks all of a user's investors by percent return on
// their current holdings, alongside the benchmark ETFs' one-year
// returns. Sorted by return desc, then invested desc, then identifier.
func (a *Aggregator) Leaderboard(ctx context.Context, userID string) ([]model.RankingEntry, error) {
	investors, err := a.investorRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToBuildRanking, err)
	}

	entries := make([]model.RankingEntry, 0, len(investors)+len(a.benchmarks))

	for _, inv := range investors {
		report, err := a.Summary(ctx, inv)
		if err != nil {
			return nil, err
		}
		if report.TotalInvested.IsZero() {
			continue
		}
		returnPct := decimal.Zero
		if report.TotalValue.IsPositive() {
			returnPct = report.TotalValue.Sub(report.TotalInvested).
				Div(report.TotalInvested).Mul(hundred).Round(2)
		}
		entries = append(entries, model.RankingEntry{
			Kind:      model.RankingKindInvestor,
			Name:      inv.Name,
			ID:        inv.ID,
			ReturnPct: returnPct,
			Invested:  report.TotalInvested,
			Value:     report.TotalValue,
		})
	}

	benchmarkEntries := make([]model.RankingEntry, len(a.benchmarks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(quoteConcurrency)
	for i, id := range a.benchmarks {
		i, id := i, id
		g.Go(func() error {
			entry, err := a.benchmarkEntry(gctx, id)
			if err != nil {
				// A benchmark without prices just drops off the board.
				log.Printf("Benchmark %s skipped: %v", id, err)
				return nil
			}
			benchmarkEntries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToBuildRanking, err)
	}
	for _, entry := range benchmarkEntries {
		if entry.ID != "" {
			entries = append(entries, entry)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ReturnPct.Equal(entries[j].ReturnPct) {
			return entries[i].ReturnPct.GreaterThan(entries[j].ReturnPct)
		}
		if !entries[i].Invested.Equal(entries[j].Invested) {
			return entries[i].Invested.GreaterThan(entries[j].Invested)
		}
		return entries[i].ID < entries[j].ID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// benchmarkEntry computes one benchmark ETF's one-year period return.
func (a *Aggregator) benchmarkEntry(ctx context.Context, securityID string) (model.RankingEntry, error) {
	current, err := a.quotes.CurrentPrice(ctx, securityID)
	if err != nil {
		return model.RankingEntry{}, err
	}
	base, err := a.quotes.HistoricalClose(ctx, securityID, time.Now().UTC().AddDate(-1, 0, 0))
	if err != nil {
		return model.RankingEntry{}, err
	}
	if !base.IsPositive() {
		return model.RankingEntry{}, apperrors.ErrPriceUnavailable
	}

	name := securityID
	if sec, err := a.securityRepo.GetByID(ctx, securityID); err == nil {
		name = sec.NameZh
	}

	return model.RankingEntry{
		Kind:      model.RankingKindBenchmark,
		Name:      name,
		ID:        securityID,
		ReturnPct: current.Sub(base).Div(base).Mul(hundred).Round(2),
	}, nil
}

// IsBenchmark reports whether a security is ranked as a benchmark:
// either in the configured set, or an ETF-style code of five or more
// digits.
func (a *Aggregator) IsBenchmark(securityID string) bool {
	for _, id := range a.benchmarks {
		if id == securityID {
			return true
		}
	}
	if len(securityID) < 5 {
		return false
	}
	for _, r := range securityID {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
