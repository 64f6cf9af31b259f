package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/shopcart/internal/service"
	"github.com/utafrali/shopcart/pkg/httputil"
	"github.com/utafrali/shopcart/pkg/middleware"
)

// OrderHandler handles HTTP requests for checkout and order endpoints.
type OrderHandler struct {
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(checkout *service.CheckoutService, orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, logger: logger}
}

// Checkout handles POST /orders. The request has no body: the order is built
// entirely from the caller's cart.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.AccountIDFromContext(r.Context())

	order, err := h.checkout.Checkout(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "order placed", order)
}

// MyOrders handles GET /orders/my-orders
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.AccountIDFromContext(r.Context())

	orders, err := h.orders.ListForOwner(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ownerID := middleware.AccountIDFromContext(r.Context())

	order, err := h.orders.GetForOwner(r.Context(), id.String(), ownerID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, order)
}

// List handles GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, orders)
}
