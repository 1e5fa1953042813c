package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/twledger/stock-ledger-backend/internal/apperrors"
	"github.com/twledger/stock-ledger-backend/internal/model"
)

// InvestorRepository provides data access methods for the investor table.
// Investors are scoped to one user; the (user_id, name) pair is unique.
type InvestorRepository struct {
	db *sql.DB
}

// NewInvestorRepository creates a new InvestorRepository with the provided database connection.
func NewInvestorRepository(db *sql.DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

// GetByName retrieves one investor of a user by name.
// Returns apperrors.ErrInvestorNotFound when the name is unknown.
func (s *InvestorRepository) GetByName(ctx context.Context, userID, name string) (model.Investor, error) {
	query := `
		SELECT id, user_id, name, is_self, created_at
		FROM investor
		WHERE user_id = ? AND name = ?
	`

	var inv model.Investor
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, userID, name).Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.IsSelf, &createdAtStr)
	if err == sql.ErrNoRows {
		return model.Investor{}, apperrors.ErrInvestorNotFound
	}
	if err != nil {
		return model.Investor{}, fmt.Errorf("failed to query investor table: %w", err)
	}

	inv.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.Investor{}, err
	}

	return inv, nil
}

// GetOrCreate returns the investor with the given name, creating it on
// first mention. The self investor is only matched, never re-created.
func (s *InvestorRepository) GetOrCreate(ctx context.Context, userID, name string) (model.Investor, error) {
	inv, err := s.GetByName(ctx, userID, name)
	if err == nil {
		return inv, nil
	}
	if err != apperrors.ErrInvestorNotFound {
		return model.Investor{}, err
	}

	inv = model.Investor{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		IsSelf:    name == model.SelfInvestorName,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO investor (id, user_id, name, is_self, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, inv.ID, inv.UserID, inv.Name, inv.IsSelf, inv.CreatedAt.Format(time.RFC3339)); err != nil {
		return model.Investor{}, fmt.Errorf("failed to insert investor: %w", err)
	}

	return inv, nil
}

// ListByUser retrieves all investors recorded in one user's ledger,
// self first, then by creation order.
func (s *InvestorRepository) ListByUser(ctx context.Context, userID string) ([]model.Investor, error) {
	query := `
		SELECT id, user_id, name, is_self, created_at
		FROM investor
		WHERE user_id = ?
		ORDER BY is_self DESC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query investor table: %w", err)
	}
	defer rows.Close()

	investors := []model.Investor{}
	for rows.Next() {
		var inv model.Investor
		var createdAtStr string

		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Name, &inv.IsSelf, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan investor table results: %w", err)
		}
		inv.CreatedAt, err = ParseTime(createdAtStr)
		if err != nil {
			return nil, err
		}

		investors = append(investors, inv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investor table: %w", err)
	}

	return investors, nil
}
