package handlers

import (
	"net/http"
	"strconv"

	"github.com/twledger/stock-ledger-backend/internal/api/response"
	"github.com/twledger/stock-ledger-backend/internal/market"
	"github.com/twledger/stock-ledger-backend/internal/validation"
)

// defaultSearchLimit caps security search results.
const defaultSearchLimit = 10

// SecurityHandler searches the security reference table.
type SecurityHandler struct {
	directory *market.Directory
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(directory *market.Directory) *SecurityHandler {
	return &SecurityHandler{directory: directory}
}

// Search looks up securities by code or name fragment.
//
// Endpoint: GET /api/security/search?q=...&limit=...
// Response: 200 OK with []model.Security
func (h *SecurityHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "limit must be a number", nil)
			return
		}
		limit = parsed
	}

	if err := validation.ValidateSearch(q, limit); err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid search", err.Error())
		return
	}

	securities, err := h.directory.Search(r.Context(), q, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, securities)
}
