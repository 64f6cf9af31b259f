package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/shopcart/internal/catalog"
	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/internal/event"
	"github.com/utafrali/shopcart/internal/repository"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// checkoutMaxAttempts bounds the retry loop when the cart changes between the
// read and the commit.
const checkoutMaxAttempts = 3

// CheckoutService converts a cart into an immutable order. Prices and names
// are re-resolved against the catalog at checkout time and snapshotted into
// the order; cart contents added mid-flight either make it into this order or
// survive in the cart for the next one, never both and never neither.
type CheckoutService struct {
	carts    repository.CartRepository
	orders   repository.OrderRepository
	catalog  catalog.Gateway
	producer *event.Producer
	logger   *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	carts repository.CartRepository,
	orders repository.OrderRepository,
	gateway catalog.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		catalog:  gateway,
		producer: producer,
		logger:   logger,
	}
}

// Checkout reads the owner's cart, prices it against the catalog, and commits
// the order atomically with emptying the cart. If the cart's version moved
// between the read and the commit, the whole attempt is retried against the
// fresh contents.
func (s *CheckoutService) Checkout(ctx context.Context, ownerID string) (*domain.Order, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.attempt(ctx, ownerID)
		if err == nil {
			if pubErr := s.producer.PublishOrderCreated(ctx, order); pubErr != nil {
				s.logger.ErrorContext(ctx, "failed to publish order.created event",
					slog.String("order_id", order.ID),
					slog.String("error", pubErr.Error()),
				)
			}

			s.logger.InfoContext(ctx, "order created",
				slog.String("order_id", order.ID),
				slog.String("owner_id", ownerID),
				slog.Int64("total_amount", order.TotalAmount),
			)
			return order, nil
		}

		if !errors.Is(err, apperrors.ErrConflict) || attempt >= checkoutMaxAttempts {
			return nil, err
		}

		s.logger.InfoContext(ctx, "cart changed during checkout, retrying",
			slog.String("owner_id", ownerID),
			slog.Int("attempt", attempt),
		)
	}
}

func (s *CheckoutService) attempt(ctx context.Context, ownerID string) (*domain.Order, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.EmptyCart()
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.ItemID)
	}

	resolved, err := s.catalog.ResolveAll(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}

	order := &domain.Order{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Status:    domain.OrderStatusConfirmed,
		CreatedAt: time.Now().UTC(),
		Items:     make([]domain.OrderItem, 0, len(cart.Lines)),
	}

	for i, line := range cart.Lines {
		item, ok := resolved[line.ItemID]
		if !ok {
			return nil, apperrors.NotFound("item", line.ItemID)
		}

		order.Items = append(order.Items, domain.OrderItem{
			ID:              uuid.New().String(),
			OrderID:         order.ID,
			ItemID:          item.ID,
			Name:            item.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: item.Price,
			Position:        i,
		})
		order.TotalAmount += item.Price * int64(line.Quantity)
	}

	if err := s.orders.CreateFromCart(ctx, order, cart.Version); err != nil {
		return nil, err
	}

	return order, nil
}
