package handlers

import (
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// InvestorHandler lists the investors tracked in a user's ledger.
type InvestorHandler struct {
	userRepo     *repository.UserRepository
	investorRepo *repository.InvestorRepository
}

// NewInvestorHandler creates a new InvestorHandler
func NewInvestorHandler(userRepo *repository.UserRepository, investorRepo *repository.InvestorRepository) *InvestorHandler {
	return &InvestorHandler{userRepo: userRepo, investorRepo: investorRepo}
}

// List returns all investors for a user, the ledger owner first.
//
// Endpoint: GET /api/investor?userId=...
// Response: 200 OK with []model.Investor
func (h *InvestorHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		respondDomainError(w, apperrors.ErrUserNotFound)
		return
	}

	user, err := h.userRepo.GetByLineUserID(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	investors, err := h.investorRepo.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, investors)
}
