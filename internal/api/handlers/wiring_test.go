package handlers

import (
	"database/sql"
	"testing"

	"github.com/twledger/stock-ledger-backend/internal/fees"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/market"
	"github.com/twledger/stock-ledger-backend/internal/message"
	"github.com/twledger/stock-ledger-backend/internal/parser"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/testutil"
)

// newTestEngine wires a ledger engine over the given test database
// with the default fee schedule.
func newTestEngine(t *testing.T, db *sql.DB) *ledger.Engine {
	t.Helper()

	return ledger.NewEngine(
		db,
		repository.NewTradeRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewRealizedPnLRepository(db),
		fees.DefaultSchedule(),
	)
}

// newTestAggregator wires a report aggregator over the given quotes.
func newTestAggregator(t *testing.T, db *sql.DB, quotes *testutil.MockQuotes, benchmarks []string) *report.Aggregator {
	t.Helper()

	return report.NewAggregator(
		newTestEngine(t, db),
		repository.NewInvestorRepository(db),
		repository.NewSecurityRepository(db),
		quotes,
		benchmarks,
	)
}

// newTestMessageService wires the full message pipeline: directory
// resolver over dim_security, mocked quotes, real engine and reports.
func newTestMessageService(t *testing.T, db *sql.DB, quotes *testutil.MockQuotes) *message.Service {
	t.Helper()

	securityRepo := repository.NewSecurityRepository(db)
	investorRepo := repository.NewInvestorRepository(db)
	engine := newTestEngine(t, db)
	aggregator := report.NewAggregator(engine, investorRepo, securityRepo, quotes, nil)
	p := parser.New(market.NewDirectory(securityRepo), quotes)

	return message.NewService(repository.NewUserRepository(db), investorRepo, p, engine, aggregator)
}
