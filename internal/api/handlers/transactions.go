package handlers

import (
	"net/http"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/api/response"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/validation"
)

// TransactionHandler serves the append-only trade log. There are no
// update or delete endpoints; corrections are compensating trades.
type TransactionHandler struct {
	userRepo     *repository.UserRepository
	investorRepo *repository.InvestorRepository
	engine       *ledger.Engine
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(userRepo *repository.UserRepository, investorRepo *repository.InvestorRepository, engine *ledger.Engine) *TransactionHandler {
	return &TransactionHandler{
		userRepo:     userRepo,
		investorRepo: investorRepo,
		engine:       engine,
	}
}

// List returns an investor's trades in chronological order.
//
// Endpoint: GET /api/transaction?userId=...&investor=...&security=...&from=...&to=...
// Response: 200 OK with []model.Trade
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(r.Context(), h.userRepo, h.investorRepo, r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	filter, err := parseTradeFilter(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	trades, err := h.engine.Transactions(r.Context(), scope.Investor.ID, filter)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trades)
}

func parseTradeFilter(r *http.Request) (model.TradeFilter, error) {
	filter := model.TradeFilter{SecurityID: r.URL.Query().Get("security")}

	var err error
	if from := r.URL.Query().Get("from"); from != "" {
		if filter.From, err = time.Parse("2006-01-02", from); err != nil {
			return model.TradeFilter{}, err
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if filter.To, err = time.Parse("2006-01-02", to); err != nil {
			return model.TradeFilter{}, err
		}
	}
	if err := validation.ValidateDateRange(filter.From, filter.To); err != nil {
		return model.TradeFilter{}, err
	}
	return filter, nil
}
