package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/pkg/database"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
// A partial unique index on (account_id) WHERE revoked_at IS NULL makes the
// single-session-per-account rule an atomic insert: concurrent logins race on
// the index and exactly one wins.
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new PostgreSQL-backed session repository.
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session. A unique violation means the account already
// holds the single-session slot.
func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.AccountID,
		s.TokenHash,
		s.ExpiresAt,
		s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyLoggedIn()
		}
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `
		SELECT id, account_id, token_hash, expires_at, created_at, revoked_at
		FROM sessions
		WHERE token_hash = $1`

	return r.scanSession(ctx, query, tokenHash)
}

// GetActiveByAccount retrieves the account's unrevoked, unexpired session.
func (r *SessionRepository) GetActiveByAccount(ctx context.Context, accountID string) (*domain.Session, error) {
	query := `
		SELECT id, account_id, token_hash, expires_at, created_at, revoked_at
		FROM sessions
		WHERE account_id = $1 AND revoked_at IS NULL AND expires_at > NOW()`

	return r.scanSession(ctx, query, accountID)
}

// DeleteExpired removes the account's unrevoked sessions whose expiry has
// passed. Called before login so an expired session does not block the slot.
func (r *SessionRepository) DeleteExpired(ctx context.Context, accountID string) error {
	query := `DELETE FROM sessions WHERE account_id = $1 AND revoked_at IS NULL AND expires_at <= NOW()`

	_, err := r.db.Exec(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	return nil
}

// Revoke marks the session with the given token hash as revoked. Revoking an
// already-revoked or absent session is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, tokenHash string) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE token_hash = $2 AND revoked_at IS NULL`

	_, err := r.db.Exec(ctx, query, time.Now().UTC(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// RevokeByAccount revokes all unrevoked sessions for the account.
func (r *SessionRepository) RevokeByAccount(ctx context.Context, accountID string) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE account_id = $2 AND revoked_at IS NULL`

	_, err := r.db.Exec(ctx, query, time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("revoke sessions by account: %w", err)
	}

	return nil
}

func (r *SessionRepository) scanSession(ctx context.Context, query string, args ...any) (*domain.Session, error) {
	var s domain.Session

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.AccountID,
		&s.TokenHash,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return &s, nil
}
