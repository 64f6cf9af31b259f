package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/internal/repository"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// OrderService reads the append-only order ledger. Orders are created only
// through checkout; there is no mutation path here.
type OrderService struct {
	orders repository.OrderRepository
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(orders repository.OrderRepository, logger *slog.Logger) *OrderService {
	return &OrderService{orders: orders, logger: logger}
}

// ListForOwner returns the owner's orders, newest first.
func (s *OrderService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetForOwner retrieves one order scoped to its owner. An order that exists
// but belongs to someone else looks exactly like one that doesn't exist.
func (s *OrderService) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Order, error) {
	order, err := s.orders.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListAll returns every order with the owner's username, for admin listing.
func (s *OrderService) ListAll(ctx context.Context) ([]domain.OrderSummary, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}
