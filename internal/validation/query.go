package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
)

// MaxSearchLimit caps security search page sizes.
const MaxSearchLimit = 50

// ValidateDateRange checks that a from/to pair is ordered. Zero values
// mean the bound is open.
func ValidateDateRange(from, to time.Time) error {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return apperrors.ErrInvalidDateRange
	}
	return nil
}

// ValidateSearch checks a security search keyword and page size.
func ValidateSearch(keyword string, limit int) error {
	verr := newError()

	if strings.TrimSpace(keyword) == "" {
		verr.add("q", "is required")
	}
	if limit < 1 || limit > MaxSearchLimit {
		verr.add("limit", fmt.Sprintf("must be between 1 and %d", MaxSearchLimit))
	}

	return verr.orNil()
}
