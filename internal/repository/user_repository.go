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

// UserRepository provides data access methods for the app_user table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the provided database connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByLineUserID retrieves a user by their chat identity.
// Returns apperrors.ErrUserNotFound when no ledger exists for it.
func (s *UserRepository) GetByLineUserID(ctx context.Context, lineUserID string) (model.User, error) {
	query := `
		SELECT id, line_user_id, display_name, created_at
		FROM app_user
		WHERE line_user_id = ?
	`

	var u model.User
	var displayName sql.NullString
	var createdAtStr string

	err := s.db.QueryRowContext(ctx, query, lineUserID).Scan(&u.ID, &u.LineUserID, &displayName, &createdAtStr)
	if err == sql.ErrNoRows {
		return model.User{}, apperrors.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to query app_user table: %w", err)
	}

	u.DisplayName = displayName.String
	u.CreatedAt, err = ParseTime(createdAtStr)
	if err != nil {
		return model.User{}, err
	}

	return u, nil
}

// Insert creates a new user row.
func (s *UserRepository) Insert(ctx context.Context, q DBTX, u *model.User) error {
	query := `
		INSERT INTO app_user (id, line_user_id, display_name, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query, u.ID, u.LineUserID, u.DisplayName, u.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert app_user: %w", err)
	}
	return nil
}

// GetOrCreate returns the user for the given chat identity, creating the
// user together with its self investor ("我") on first contact. The two
// inserts happen in one transaction.
func (s *UserRepository) GetOrCreate(ctx context.Context, lineUserID, displayName string) (model.User, error) {
	user, err := s.GetByLineUserID(ctx, lineUserID)
	if err == nil {
		return user, nil
	}
	if err != apperrors.ErrUserNotFound {
		return model.User{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := time.Now().UTC()
	user = model.User{
		ID:          uuid.New().String(),
		LineUserID:  lineUserID,
		DisplayName: displayName,
		CreatedAt:   now,
	}
	if err := s.Insert(ctx, tx, &user); err != nil {
		return model.User{}, err
	}

	self := model.Investor{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Name:      model.SelfInvestorName,
		IsSelf:    true,
		CreatedAt: now,
	}
	insertInvestor := `
		INSERT INTO investor (id, user_id, name, is_self, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insertInvestor, self.ID, self.UserID, self.Name, self.IsSelf, now.Format(time.RFC3339)); err != nil {
		return model.User{}, fmt.Errorf("failed to insert self investor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, fmt.Errorf("failed to commit user creation: %w", err)
	}

	return user, nil
}
