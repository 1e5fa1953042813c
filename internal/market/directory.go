package market

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// Directory resolves user-typed security tokens against the
// dim_security reference table. Numeric tokens are looked up by
// identifier; anything else is matched against Chinese names.
type Directory struct {
	securityRepo *repository.SecurityRepository
}

// NewDirectory creates a Directory backed by the given repository.
func NewDirectory(securityRepo *repository.SecurityRepository) *Directory {
	return &Directory{securityRepo: securityRepo}
}

// Resolve maps a token to a canonical security. Returns
// apperrors.ErrUnresolvedSecurity when the token matches nothing, or
// matches more than one name without an exact hit.
func (d *Directory) Resolve(ctx context.Context, token string) (model.Security, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimSuffix(strings.TrimSuffix(token, ".TWO"), ".TW")
	if token == "" {
		return model.Security{}, apperrors.ErrUnresolvedSecurity
	}

	if isDigits(token) {
		sec, err := d.securityRepo.GetByID(ctx, token)
		if errors.Is(err, apperrors.ErrSecurityNotFound) {
			return model.Security{}, apperrors.ErrUnresolvedSecurity
		}
		return sec, err
	}

	candidates, err := d.securityRepo.SearchByName(ctx, token, 10)
	if err != nil {
		return model.Security{}, err
	}
	for _, sec := range candidates {
		if sec.NameZh == token {
			return sec, nil
		}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return model.Security{}, apperrors.ErrUnresolvedSecurity
}

// Search exposes fuzzy name lookup for the security search endpoint.
func (d *Directory) Search(ctx context.Context, keyword string, limit int) ([]model.Security, error) {
	keyword = strings.TrimSpace(keyword)
	if isDigits(keyword) {
		sec, err := d.securityRepo.GetByID(ctx, keyword)
		if err == nil {
			return []model.Security{sec}, nil
		}
		if !errors.Is(err, apperrors.ErrSecurityNotFound) {
			return nil, err
		}
		return []model.Security{}, nil
	}
	return d.securityRepo.SearchByName(ctx, keyword, limit)
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
