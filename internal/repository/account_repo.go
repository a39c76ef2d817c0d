package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
)

// ErrAddressTaken / ErrEmailTaken mirror the teacher's unique-constraint
// mapping in user_repo.go, adapted to the Account entity.
var (
	ErrAddressTaken = errors.New("address already registered")
	ErrEmailTaken   = errors.New("email already registered")
)

// AccountRepository handles all database operations for Accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates an AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account, mapping unique-constraint violations to
// domain-specific sentinel errors the same way user_repo.Create does.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, address, email, password_hash, role, active, created_at)
		VALUES (:id, :address, :email, :password_hash, :role, :active, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		if isPgUniqueViolation(err, "accounts_address_key") {
			return ErrAddressTaken
		}
		if isPgUniqueViolation(err, "accounts_email_key") {
			return ErrEmailTaken
		}
		return fmt.Errorf("account_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches an account by primary key.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("account_repo.GetByID: %w", err)
	}
	return &a, nil
}

// GetByEmail fetches an account by login email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM accounts WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("account_repo.GetByEmail: %w", err)
	}
	return &a, nil
}

// ListSigners returns every active governance signer's address.
func (r *AccountRepository) ListSigners(ctx context.Context) ([]string, error) {
	var addrs []string
	err := r.db.SelectContext(ctx, &addrs,
		`SELECT address FROM accounts WHERE role = 'signer' AND active = true`)
	if err != nil {
		return nil, fmt.Errorf("account_repo.ListSigners: %w", err)
	}
	return addrs, nil
}

// isPgUniqueViolation reports whether err came from a unique-constraint
// violation on the named constraint — string matching here because lib/pq
// returns an opaque *pq.Error whose Constraint field we'd rather not import
// pq's error type into the repository signature for, matching the teacher's
// own isPgUniqueViolation approach.
func isPgUniqueViolation(err error, constraint string) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") && strings.Contains(msg, constraint)
}
