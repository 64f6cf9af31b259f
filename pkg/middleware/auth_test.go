package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

func authTestHandler(validate TokenValidator, buf *bytes.Buffer) http.Handler {
	return Auth(validate, newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doAuthRequest(t *testing.T, handler http.Handler, authHeader string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return rec, body
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in body, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestAuth_MissingHeader(t *testing.T) {
	var buf bytes.Buffer
	handler := authTestHandler(func(ctx context.Context, token string) (string, error) {
		t.Fatal("validator must not run without a header")
		return "", nil
	}, &buf)

	rec, body := doAuthRequest(t, handler, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, body); code != apperrors.CodeNoToken {
		t.Errorf("code = %q, want %q", code, apperrors.CodeNoToken)
	}
}

func TestAuth_AppErrorPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	handler := authTestHandler(func(ctx context.Context, token string) (string, error) {
		return "", apperrors.Unauthorized(apperrors.CodeSessionSuperseded, "session superseded by a newer login")
	}, &buf)

	rec, body := doAuthRequest(t, handler, "Bearer some-token")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, body); code != apperrors.CodeSessionSuperseded {
		t.Errorf("code = %q, want %q", code, apperrors.CodeSessionSuperseded)
	}
}

func TestAuth_WrappedAppErrorUnwrapped(t *testing.T) {
	var buf bytes.Buffer
	handler := authTestHandler(func(ctx context.Context, token string) (string, error) {
		return "", fmt.Errorf("validate: %w", apperrors.Unauthorized(apperrors.CodeExpiredToken, "token expired"))
	}, &buf)

	rec, body := doAuthRequest(t, handler, "Bearer some-token")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, body); code != apperrors.CodeExpiredToken {
		t.Errorf("code = %q, want %q", code, apperrors.CodeExpiredToken)
	}
}

// An infrastructure failure inside the validator is not a bad token: the
// client gets a generic 500 and the cause is logged, never an auth code.
func TestAuth_InfraErrorIsLogged500(t *testing.T) {
	var buf bytes.Buffer
	handler := authTestHandler(func(ctx context.Context, token string) (string, error) {
		return "", fmt.Errorf("get account: %w", fmt.Errorf("connection refused"))
	}, &buf)

	rec, body := doAuthRequest(t, handler, "Bearer some-token")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if code := errorCode(t, body); code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("internal cause leaked into the response body")
	}
	if !strings.Contains(buf.String(), "connection refused") {
		t.Error("expected the validator failure to be logged")
	}
}
