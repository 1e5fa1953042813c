package handlers

import (
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// RankingHandler serves the cross-investor leaderboard.
type RankingHandler struct {
	userRepo   *repository.UserRepository
	aggregator *report.Aggregator
}

// NewRankingHandler creates a new RankingHandler
func NewRankingHandler(userRepo *repository.UserRepository, aggregator *report.Aggregator) *RankingHandler {
	return &RankingHandler{userRepo: userRepo, aggregator: aggregator}
}

// List returns the ranked investors and benchmarks for a user.
//
// Endpoint: GET /api/ranking?userId=...
// Response: 200 OK with []model.RankingEntry
func (h *RankingHandler) List(w http.ResponseWriter, r *http.Request) {
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

	entries, err := h.aggregator.Leaderboard(r.Context(), user.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
