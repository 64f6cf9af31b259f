package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned by ValidateToken when the token's exp claim is
// in the past. Any other parse or signature failure returns a generic error.
var ErrTokenExpired = errors.New("token expired")

// Claims represents the JWT claims embedded in a session token. The subject
// is the account ID.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTManager handles token generation and validation. Tokens are HS256-signed
// and carry only the account ID; whether the token is the account's current
// session is decided against server-side state, not the token itself.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWT manager with the given secret and token lifetime.
func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// GenerateToken creates a signed token with the account ID as subject.
func (m *JWTManager) GenerateToken(accountID string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			Issuer:    "shopcart",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken parses and validates a token, returning the account ID from
// the subject claim. Expired tokens return ErrTokenExpired so callers can
// distinguish them from malformed or forged tokens.
func (m *JWTManager) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}

	return claims.Subject, nil
}

// Expiry returns the configured token lifetime.
func (m *JWTManager) Expiry() time.Duration {
	return m.expiry
}
