package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// respondJSON sends a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Failed to encode JSON: %v", err)
		}
	}
}

// respondDomainError maps domain errors to HTTP statuses: lookups that
// missed are 404, caller mistakes are 400, the rest is 500.
func respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrInvestorNotFound),
		errors.Is(err, apperrors.ErrSecurityNotFound),
		errors.Is(err, apperrors.ErrHoldingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrInvalidDateRange):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientHoldings):
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// userScope resolves the ?userId query parameter (the chat user id) and
// the optional ?investor name, defaulting to the ledger owner.
type userScope struct {
	User     model.User
	Investor model.Investor
}

func resolveScope(ctx context.Context, userRepo *repository.UserRepository, investorRepo *repository.InvestorRepository, r *http.Request) (userScope, error) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return userScope{}, apperrors.ErrUserNotFound
	}
	user, err := userRepo.GetByLineUserID(ctx, userID)
	if err != nil {
		return userScope{}, err
	}

	name := r.URL.Query().Get("investor")
	if name == "" {
		name = model.SelfInvestorName
	}
	investor, err := investorRepo.GetByName(ctx, user.ID, name)
	if err != nil {
		return userScope{}, err
	}

	return userScope{User: user, Investor: investor}, nil
}
