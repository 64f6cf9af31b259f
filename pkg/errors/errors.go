package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the closed error taxonomy. Components wrap these so the
// boundary layer can map them with errors.Is without string matching.
var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyLoggedIn    = errors.New("session already active")
	ErrNotFound           = errors.New("resource not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal error")
)

// Auth error codes. All map to 401; the code tells the client (and tests)
// exactly which check failed.
const (
	CodeNoToken           = "NO_TOKEN"
	CodeMalformedToken    = "MALFORMED_TOKEN"
	CodeExpiredToken      = "EXPIRED_TOKEN"
	CodeSessionSuperseded = "SESSION_SUPERSEDED"
	CodeUnknownAccount    = "UNKNOWN_ACCOUNT"
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation creates a 400 error for a failed input constraint.
func Validation(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrValidation,
	}
}

// DuplicateUsername creates a 400 error for a taken username.
func DuplicateUsername(username string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_USERNAME",
		Message: fmt.Sprintf("username %q already exists", username),
		Status:  http.StatusBadRequest,
		Err:     ErrDuplicateUsername,
	}
}

// InvalidCredentials creates a 400 error for an unknown username or a
// password mismatch. Deliberately identical for both cases.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid username or password",
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidCredentials,
	}
}

// Unauthorized creates a 401 error with one of the auth codes above.
func Unauthorized(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// AlreadyLoggedIn creates a 403 error for a login attempt while a session is active.
func AlreadyLoggedIn() *AppError {
	return &AppError{
		Code:    "ALREADY_LOGGED_IN",
		Message: "you cannot login on another device",
		Status:  http.StatusForbidden,
		Err:     ErrAlreadyLoggedIn,
	}
}

// NotFound creates a 404 error. The same error is used whether the resource
// does not exist or belongs to someone else.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// EmptyCart creates a 400 error for a checkout on a cart with zero lines.
func EmptyCart() *AppError {
	return &AppError{
		Code:    "EMPTY_CART",
		Message: "cart is empty, add items before placing an order",
		Status:  http.StatusBadRequest,
		Err:     ErrEmptyCart,
	}
}

// Conflict creates a 409 error for exhausted concurrency retries.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error wrapping the underlying cause. The cause is
// logged at the boundary, never serialized.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateUsername),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAlreadyLoggedIn):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
