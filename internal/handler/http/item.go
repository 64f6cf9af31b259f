package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/shopcart/internal/service"
	"github.com/utafrali/shopcart/pkg/httputil"
	"github.com/utafrali/shopcart/pkg/validator"
)

// ItemHandler handles HTTP requests for catalog endpoints.
type ItemHandler struct {
	service *service.ItemService
	logger  *slog.Logger
}

// NewItemHandler creates a new item HTTP handler.
func NewItemHandler(svc *service.ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{service: svc, logger: logger}
}

// CreateItemRequest is the JSON request body for adding a catalog item.
type CreateItemRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"gte=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// Create handles POST /items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CreateItemRequest
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

	item, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusCreated, "item created", item)
}

// Get handles GET /items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, item)
}

// List handles GET /items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, items)
}
