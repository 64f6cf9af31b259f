package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/shopcart/internal/service"
	"github.com/utafrali/shopcart/pkg/httputil"
	"github.com/utafrali/shopcart/pkg/middleware"
	"github.com/utafrali/shopcart/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{service: svc, logger: logger}
}

// AddItemRequest is the JSON request body for adding an item to the cart.
// Quantity defaults to 1 when omitted.
type AddItemRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"omitempty,gte=1,lte=1000"`
}

// AddItem handles POST /carts
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req AddItemRequest
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

	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ownerID := middleware.AccountIDFromContext(r.Context())

	view, err := h.service.AddItem(r.Context(), ownerID, req.ItemID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /carts/my-cart/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	ownerID := middleware.AccountIDFromContext(r.Context())

	view, err := h.service.RemoveItem(r.Context(), ownerID, itemID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// MyCart handles GET /carts/my-cart
func (h *CartHandler) MyCart(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.AccountIDFromContext(r.Context())

	view, err := h.service.GetCart(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, view)
}

// List handles GET /carts
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListCarts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, views)
}
