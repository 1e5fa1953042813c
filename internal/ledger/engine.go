// Package ledger maintains derived positions over the append-only
// trade log: weighted-average cost on buys, realized profit and loss on
// sells, and a hard no-shorting rule.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/fees"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// avgCostPlaces is the precision kept for the weighted-average cost.
// Money amounts stay at two places; the extra precision here keeps
// repeated partial sells from drifting.
const avgCostPlaces = 4

// CommitResult reports the outcome of one recorded trade: the stored
// trade row, the position after the trade (zero quantity means the
// position was closed), and the realized P&L row for sells.
type CommitResult struct {
	Trade    model.Trade        `json:"trade"`
	Holding  model.Holding      `json:"holding"`
	Closed   bool               `json:"closed"`
	Realized *model.RealizedPnL `json:"realized,omitempty"`
}

// Engine records trades and keeps holdings consistent with the trade
// log. Each (investor, security) position is guarded by its own mutex
// and every commit runs in one database transaction, so concurrent
// trades on the same position serialize instead of racing.
type Engine struct {
	db           *sql.DB
	tradeRepo    *repository.TradeRepository
	holdingRepo  *repository.HoldingRepository
	realizedRepo *repository.RealizedPnLRepository
	schedule     fees.Schedule

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an Engine with the provided repositories and fee
// schedule.
func NewEngine(db *sql.DB, tradeRepo *repository.TradeRepository, holdingRepo *repository.HoldingRepository, realizedRepo *repository.RealizedPnLRepository, schedule fees.Schedule) *Engine {
	return &Engine{
		db:           db,
		tradeRepo:    tradeRepo,
		holdingRepo:  holdingRepo,
		realizedRepo: realizedRepo,
		schedule:     schedule,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Schedule returns the fee schedule the engine trades under.
func (e *Engine) Schedule() fees.Schedule {
	return e.schedule
}

// positionLock returns the mutex guarding one (investor, security)
// position, creating it on first use. Locks are never removed; the map
// grows with the number of distinct positions, which is small.
func (e *Engine) positionLock(investorID, securityID string) *sync.Mutex {
	key := investorID + "|" + securityID
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	e.locks[key] = l
	return l
}

// Record applies one trade to an investor's ledger. The trade row,
// holding update and realized P&L row commit atomically; on any error
// nothing is written.
//
// Buys move the weighted-average cost; sells never do. A sell larger
// than the current position is rejected with ErrInsufficientHoldings.
func (e *Engine) Record(ctx context.Context, investorID, securityID string, side model.Side, quantity, price decimal.Decimal, tradeDate time.Time, notes string) (CommitResult, error) {
	breakdown, err := e.schedule.ForTrade(side, quantity, price)
	if err != nil {
		return CommitResult{}, err
	}

	lock := e.positionLock(investorID, securityID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	holding, err := e.holdingRepo.Get(ctx, tx, investorID, securityID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrHoldingNotFound):
		holding = model.Holding{
			InvestorID:    investorID,
			SecurityID:    securityID,
			Quantity:      decimal.Zero,
			AvgCost:       decimal.Zero,
			TotalInvested: decimal.Zero,
		}
	default:
		return CommitResult{}, err
	}

	// created_at is the tiebreak after trade_date when the log is read
	// back, so same-day trades replay in recording order.
	now := time.Now().UTC()

	trade := model.Trade{
		ID:          uuid.New().String(),
		InvestorID:  investorID,
		SecurityID:  securityID,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		Fee:         breakdown.Fee,
		Tax:         breakdown.Tax,
		TotalAmount: breakdown.NetAmount,
		TradeDate:   tradeDate,
		Notes:       notes,
		CreatedAt:   now,
	}

	result := CommitResult{Trade: trade}

	switch side {
	case model.SideBuy:
		holding = applyBuy(holding, quantity, breakdown.Amount)
		if err := e.holdingRepo.Upsert(ctx, tx, &holding); err != nil {
			return CommitResult{}, err
		}

	case model.SideSell:
		if holding.Quantity.LessThan(quantity) {
			return CommitResult{}, apperrors.ErrInsufficientHoldings
		}

		realized := model.RealizedPnL{
			ID:           uuid.New().String(),
			InvestorID:   investorID,
			SecurityID:   securityID,
			TradeID:      trade.ID,
			QuantitySold: quantity,
			CostBasis:    holding.AvgCost.Mul(quantity).Round(2),
			Proceeds:     breakdown.NetAmount,
			TradeDate:    tradeDate,
			CreatedAt:    now,
		}
		realized.GainLoss = realized.Proceeds.Sub(realized.CostBasis)
		result.Realized = &realized

		holding = applySell(holding, quantity, realized.CostBasis)
		if holding.Quantity.IsZero() {
			result.Closed = true
			if err := e.holdingRepo.Delete(ctx, tx, investorID, securityID); err != nil {
				return CommitResult{}, err
			}
		} else if err := e.holdingRepo.Upsert(ctx, tx, &holding); err != nil {
			return CommitResult{}, err
		}

	default:
		return CommitResult{}, fmt.Errorf("unknown trade side %q", side)
	}

	if err := e.tradeRepo.Insert(ctx, tx, &trade); err != nil {
		return CommitResult{}, err
	}
	if result.Realized != nil {
		if err := e.realizedRepo.Insert(ctx, tx, result.Realized); err != nil {
			return CommitResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToCommitTrade, err)
	}

	result.Holding = holding
	return result, nil
}

// applyBuy folds a purchase into a position. The average cost is the
// quantity-weighted price excluding fees; fees affect cash flow and
// realized P&L but not the cost basis.
func applyBuy(h model.Holding, quantity, amount decimal.Decimal) model.Holding {
	h.TotalInvested = h.TotalInvested.Add(amount)
	h.Quantity = h.Quantity.Add(quantity)
	h.AvgCost = h.TotalInvested.DivRound(h.Quantity, avgCostPlaces)
	h.UpdatedAt = time.Now().UTC()
	return h
}

// applySell reduces a position without touching the average cost.
// TotalInvested is reduced by the cost basis of the shares sold so that
// the remaining invested amount still matches the open quantity.
func applySell(h model.Holding, quantity, costBasis decimal.Decimal) model.Holding {
	h.Quantity = h.Quantity.Sub(quantity)
	h.TotalInvested = h.TotalInvested.Sub(costBasis)
	if h.Quantity.IsZero() {
		h.AvgCost = decimal.Zero
		h.TotalInvested = decimal.Zero
	}
	h.UpdatedAt = time.Now().UTC()
	return h
}

// Positions lists an investor's open positions, largest investment first.
func (e *Engine) Positions(ctx context.Context, investorID string) ([]model.Holding, error) {
	return e.holdingRepo.ListByInvestor(ctx, investorID)
}

// Position returns one open position.
func (e *Engine) Position(ctx context.Context, investorID, securityID string) (model.Holding, error) {
	return e.holdingRepo.Get(ctx, e.db, investorID, securityID)
}

// Transactions lists an investor's trades in chronological order.
func (e *Engine) Transactions(ctx context.Context, investorID string, filter model.TradeFilter) ([]model.Trade, error) {
	return e.tradeRepo.List(ctx, investorID, filter)
}

// Realized aggregates an investor's realized P&L per security.
// securityID narrows to one security when non-empty.
func (e *Engine) Realized(ctx context.Context, investorID, securityID string) ([]model.RealizedSummary, error) {
	return e.realizedRepo.Summarize(ctx, investorID, securityID)
}

// Rebuild drops an investor's derived state and recomputes holdings and
// realized P&L by folding the trade log in order. The trade log itself
// is never touched. Used to recover from manual database edits.
func (e *Engine) Rebuild(ctx context.Context, investorID string) error {
	trades, err := e.tradeRepo.List(ctx, investorID, model.TradeFilter{})
	if err != nil {
		return err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holding WHERE investor_id = ?`, investorID); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM realized_pnl WHERE investor_id = ?`, investorID); err != nil {
		return fmt.Errorf("failed to clear realized P&L: %w", err)
	}

	holdings := make(map[string]model.Holding)
	for _, t := range trades {
		h, ok := holdings[t.SecurityID]
		if !ok {
			h = model.Holding{InvestorID: investorID, SecurityID: t.SecurityID}
		}

		switch t.Side {
		case model.SideBuy:
			h = applyBuy(h, t.Quantity, t.Quantity.Mul(t.Price).Round(2))
		case model.SideSell:
			if h.Quantity.LessThan(t.Quantity) {
				return fmt.Errorf("trade log replays to a short position for %s", t.SecurityID)
			}
			costBasis := h.AvgCost.Mul(t.Quantity).Round(2)
			realized := model.RealizedPnL{
				ID:           uuid.New().String(),
				InvestorID:   investorID,
				SecurityID:   t.SecurityID,
				TradeID:      t.ID,
				QuantitySold: t.Quantity,
				CostBasis:    costBasis,
				Proceeds:     t.TotalAmount,
				GainLoss:     t.TotalAmount.Sub(costBasis),
				TradeDate:    t.TradeDate,
				CreatedAt:    time.Now().UTC(),
			}
			if err := e.realizedRepo.Insert(ctx, tx, &realized); err != nil {
				return err
			}
			h = applySell(h, t.Quantity, costBasis)
		}
		holdings[t.SecurityID] = h
	}

	for _, h := range holdings {
		if h.Quantity.IsZero() {
			continue
		}
		h := h
		if err := e.holdingRepo.Upsert(ctx, tx, &h); err != nil {
			return err
		}
	}

	return tx.Commit()
}
