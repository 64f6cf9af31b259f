package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/shopcart/internal/service"
	"github.com/utafrali/shopcart/pkg/httputil"
	"github.com/utafrali/shopcart/pkg/middleware"
	"github.com/utafrali/shopcart/pkg/validator"
)

// UserHandler handles HTTP requests for account and session endpoints.
type UserHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// RegisterRequest is the JSON request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse wraps account data with the session token.
type LoginResponse struct {
	Account any    `json:"account"`
	Token   string `json:"token"`
}

// Register handles POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	account, err := h.service.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "account created", account)
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "VALIDATION_ERROR", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	account, token, err := h.service.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, LoginResponse{Account: account, Token: token})
}

// Logout handles POST /users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if err := h.service.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "logged out", nil)
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountIDFromContext(r.Context())

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, account)
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, accounts)
}

// bearerToken extracts the raw token from the Authorization header. The Auth
// middleware has already verified the header's shape on protected routes.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
