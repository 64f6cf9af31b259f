package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

type contextKeyType string

const accountIDKey contextKeyType = "account_id"

// TokenValidator validates a bearer token and returns the authenticated
// account ID. The validator is expected to check both the token signature and
// the server-side session state, returning an *apperrors.AppError with one of
// the auth codes on failure.
type TokenValidator func(ctx context.Context, token string) (string, error)

// Auth validates bearer tokens and injects the account ID into context.
// Requests without an Authorization header, or with one that is not a Bearer
// scheme, are rejected before the validator runs. Validator failures that are
// not AppErrors (a dead session store, not a bad token) are logged and
// surfaced as a generic 500, never as an auth code.
func Auth(validate TokenValidator, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, apperrors.Unauthorized(apperrors.CodeNoToken, "missing authorization header"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				writeAuthError(w, apperrors.Unauthorized(apperrors.CodeMalformedToken, "invalid authorization header format"))
				return
			}

			accountID, err := validate(r.Context(), parts[1])
			if err != nil {
				var appErr *apperrors.AppError
				if !errors.As(err, &appErr) {
					l.ErrorContext(r.Context(), "token validation failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
					appErr = apperrors.Internal(err)
				}
				writeAuthError(w, appErr)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext extracts the authenticated account ID from the request
// context. Returns "" when the Auth middleware did not run.
func AccountIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(accountIDKey).(string); ok {
		return id
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
