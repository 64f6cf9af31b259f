package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/pkg/database"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// AccountRepository implements repository.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db database.DBTX
}

// NewAccountRepository creates a new PostgreSQL-backed account repository.
func NewAccountRepository(db database.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account into the database.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.Username,
		a.PasswordHash,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateUsername(a.Username)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, username, password_hash, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	return r.scanAccount(ctx, query, id)
}

// GetByUsername retrieves an account by its username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `
		SELECT id, username, password_hash, created_at, updated_at
		FROM accounts
		WHERE username = $1`

	return r.scanAccount(ctx, query, username)
}

// List returns all accounts, newest first.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	query := `
		SELECT id, username, password_hash, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID,
			&a.Username,
			&a.PasswordHash,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}

	if accounts == nil {
		accounts = []domain.Account{}
	}

	return accounts, nil
}

// scanAccount executes a query expected to return a single account row.
func (r *AccountRepository) scanAccount(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var a domain.Account

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &a, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
