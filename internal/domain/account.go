package domain

import (
	"time"
)

// Account represents a registered account.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session represents the server-side record of an issued token. At most one
// unrevoked session exists per account; validity additionally requires
// ExpiresAt to be in the future.
type Session struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
