package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/pkg/database"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

func newSessionTestFixture(t *testing.T) (*SessionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewSessionRepository(mock)
	return repo, mock
}

func sampleSession() *domain.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Session{
		ID:        "s-1234",
		AccountID: "a-1234",
		TokenHash: "hash-of-token",
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}
}

func sessionColumns() []string {
	return []string{"id", "account_id", "token_hash", "expires_at", "created_at", "revoked_at"}
}

func TestSessionRepository_Create_Success(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	s := sampleSession()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, s.AccountID, s.TokenHash, s.ExpiresAt, s.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), s)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The partial unique index on (account_id) WHERE revoked_at IS NULL rejects a
// second unrevoked session; the violation surfaces as ALREADY_LOGGED_IN.
func TestSessionRepository_Create_SecondActiveSession(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	s := sampleSession()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(s.ID, s.AccountID, s.TokenHash, s.ExpiresAt, s.CreatedAt).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint \"sessions_one_active_per_account\" (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyLoggedIn), "expected ErrAlreadyLoggedIn, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetActiveByAccount_Success(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	s := sampleSession()

	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs(s.AccountID).
		WillReturnRows(pgxmock.NewRows(sessionColumns()).AddRow(
			s.ID, s.AccountID, s.TokenHash, s.ExpiresAt, s.CreatedAt, nil,
		))

	got, err := repo.GetActiveByAccount(context.Background(), s.AccountID)
	require.NoError(t, err)
	assert.Equal(t, s.TokenHash, got.TokenHash)
	assert.Nil(t, got.RevokedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_GetActiveByAccount_NotFound(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM sessions").
		WithArgs("a-1234").
		WillReturnRows(pgxmock.NewRows(sessionColumns()))

	got, err := repo.GetActiveByAccount(context.Background(), "a-1234")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_Revoke_AbsentSessionIsNoOp(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE sessions SET revoked_at").
		WithArgs(pgxmock.AnyArg(), "no-such-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Revoke(context.Background(), "no-such-hash")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	repo, mock := newSessionTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("a-1234").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.DeleteExpired(context.Background(), "a-1234")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
