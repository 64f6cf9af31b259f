package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/shopcart/internal/auth"
	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/internal/event"
	"github.com/utafrali/shopcart/internal/repository"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// AuthService implements registration and the session-bound authentication
// lifecycle: one active session per account, token validity decided against
// server-side session state.
type AuthService struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	jwt      *auth.JWTManager
	producer *event.Producer
	logger   *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	jwt *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		sessions: sessions,
		jwt:      jwt,
		producer: producer,
		logger:   logger,
	}
}

// RegisterInput holds the parameters for registering a new account.
type RegisterInput struct {
	Username string
	Password string
}

// LoginInput holds the parameters for login.
type LoginInput struct {
	Username string
	Password string
}

// Register creates a new account with a bcrypt-hashed password. Registration
// never logs the account in; a separate login is required.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	if len(input.Username) < minUsernameLength {
		return nil, apperrors.Validation(fmt.Sprintf("username must be at least %d characters", minUsernameLength))
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.producer.PublishAccountRegistered(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish account.registered event",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
	)

	return account, nil
}

// Login authenticates an account and issues a session token. An account with
// an active session is rejected before the password is even checked; an
// expired session does not block the slot. Concurrent logins race on the
// session store's single-session constraint and exactly one wins.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.Account, string, error) {
	if input.Username == "" || input.Password == "" {
		return nil, "", apperrors.Validation("username and password are required")
	}

	account, err := s.accounts.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", apperrors.InvalidCredentials()
		}
		return nil, "", fmt.Errorf("get account by username: %w", err)
	}

	if _, err := s.sessions.GetActiveByAccount(ctx, account.ID); err == nil {
		return nil, "", apperrors.AlreadyLoggedIn()
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, "", fmt.Errorf("check active session: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", apperrors.InvalidCredentials()
	}

	// An expired-but-unrevoked session still occupies the unique slot;
	// clear it so the new session can be inserted.
	if err := s.sessions.DeleteExpired(ctx, account.ID); err != nil {
		return nil, "", fmt.Errorf("clear expired sessions: %w", err)
	}

	token, err := s.jwt.GenerateToken(account.ID)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(s.jwt.Expiry()),
		CreatedAt: now,
	}

	// The insert is the atomic check-then-set: a concurrent login that got
	// here first holds the partial unique index, and this one fails.
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "account logged in",
		slog.String("account_id", account.ID),
	)

	return account, token, nil
}

// Logout revokes the session bound to the presented token. Logging out an
// already-ended session is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, hashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.logger.InfoContext(ctx, "session revoked")
	return nil
}

// Validate checks a presented token: signature and expiry first, then the
// account, then hash-equality with the account's current active session. A
// well-signed token that is no longer the stored one (a newer login replaced
// it, or logout revoked it) is rejected as superseded.
func (s *AuthService) Validate(ctx context.Context, token string) (string, error) {
	accountID, err := s.jwt.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return "", apperrors.Unauthorized(apperrors.CodeExpiredToken, "token has expired, please login again")
		}
		return "", apperrors.Unauthorized(apperrors.CodeMalformedToken, "invalid token")
	}

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized(apperrors.CodeUnknownAccount, "account no longer exists")
		}
		return "", fmt.Errorf("get account: %w", err)
	}

	session, err := s.sessions.GetActiveByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.Unauthorized(apperrors.CodeSessionSuperseded, "session ended, please login again")
		}
		return "", fmt.Errorf("get active session: %w", err)
	}

	if session.TokenHash != hashToken(token) {
		return "", apperrors.Unauthorized(apperrors.CodeSessionSuperseded, "session superseded by a newer login")
	}

	return accountID, nil
}

// GetAccount retrieves an account by its ID.
func (s *AuthService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("account", id)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns all registered accounts.
func (s *AuthService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// hashToken returns the SHA256 hex digest of the given token string. Only
// the digest is ever stored.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
