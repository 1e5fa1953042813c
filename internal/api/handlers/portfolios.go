package handlers

import (
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// PortfolioHandler serves position reports and realized P&L.
type PortfolioHandler struct {
	userRepo     *repository.UserRepository
	investorRepo *repository.InvestorRepository
	engine       *ledger.Engine
	aggregator   *report.Aggregator
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(userRepo *repository.UserRepository, investorRepo *repository.InvestorRepository, engine *ledger.Engine, aggregator *report.Aggregator) *PortfolioHandler {
	return &PortfolioHandler{
		userRepo:     userRepo,
		investorRepo: investorRepo,
		engine:       engine,
		aggregator:   aggregator,
	}
}

// Portfolio returns an investor's position report with market values.
//
// Endpoint: GET /api/portfolio?userId=...&investor=...
// Response: 200 OK with model.PositionReport
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(r.Context(), h.userRepo, h.investorRepo, r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	rpt, err := h.aggregator.Summary(r.Context(), scope.Investor)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rpt)
}

// Realized returns an investor's realized P&L per security.
//
// Endpoint: GET /api/portfolio/realized?userId=...&investor=...&security=...
// Response: 200 OK with []model.RealizedSummary
func (h *PortfolioHandler) Realized(w http.ResponseWriter, r *http.Request) {
	scope, err := resolveScope(r.Context(), h.userRepo, h.investorRepo, r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	summaries, err := h.engine.Realized(r.Context(), scope.Investor.ID, r.URL.Query().Get("security"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}
