package market

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// Refresher periodically refreshes quotes for every held security plus
// the benchmark ETFs, so chat replies and reports rarely wait on a live
// upstream fetch.
type Refresher struct {
	quotes      *QuoteService
	holdingRepo *repository.HoldingRepository
	benchmarks  []string
	scheduler   *cron.Cron
}

// NewRefresher creates a Refresher for the given benchmark codes.
func NewRefresher(quotes *QuoteService, holdingRepo *repository.HoldingRepository, benchmarks []string) *Refresher {
	return &Refresher{
		quotes:      quotes,
		holdingRepo: holdingRepo,
		benchmarks:  benchmarks,
		scheduler:   cron.New(),
	}
}

// Start schedules the refresh job with the given cron spec and runs the
// scheduler in the background.
func (r *Refresher) Start(spec string) error {
	if _, err := r.scheduler.AddFunc(spec, r.RefreshAll); err != nil {
		return err
	}
	r.scheduler.Start()
	log.Printf("Quote refresher scheduled: %s", spec)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *Refresher) Stop() {
	ctx := r.scheduler.Stop()
	<-ctx.Done()
}

// RefreshAll refreshes quotes for all held securities and benchmarks.
// Failures are logged per security; one bad symbol never blocks the rest.
func (r *Refresher) RefreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	held, err := r.holdingRepo.HeldSecurities(ctx)
	if err != nil {
		log.Printf("Quote refresh: failed to list held securities: %v", err)
		return
	}

	seen := make(map[string]bool, len(held)+len(r.benchmarks))
	ids := make([]string, 0, len(held)+len(r.benchmarks))
	for _, id := range append(held, r.benchmarks...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := r.quotes.Refresh(gctx, id); err != nil {
				log.Printf("Quote refresh failed for %s: %v", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("Quote refresh completed for %d securities", len(ids))
}
