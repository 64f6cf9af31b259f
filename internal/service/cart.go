package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/shopcart/internal/catalog"
	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/internal/event"
	"github.com/utafrali/shopcart/internal/repository"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// CartService implements cart mutations and the resolved cart view. Carts
// store (item, quantity) references only; names and prices are joined in from
// the catalog at read time.
type CartService struct {
	carts    repository.CartRepository
	catalog  catalog.Gateway
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	carts repository.CartRepository,
	gateway catalog.Gateway,
	producer *event.Producer,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		carts:    carts,
		catalog:  gateway,
		producer: producer,
		logger:   logger,
	}
}

// AddItem verifies the item exists in the catalog, merges the quantity into
// the owner's cart, and returns the updated view.
func (s *CartService) AddItem(ctx context.Context, ownerID, itemID string, quantity int) (*domain.CartView, error) {
	if quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}

	if _, err := s.catalog.Resolve(ctx, itemID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("item", itemID)
		}
		return nil, fmt.Errorf("resolve item: %w", err)
	}

	if err := s.carts.AddLine(ctx, ownerID, itemID, quantity); err != nil {
		return nil, fmt.Errorf("add cart line: %w", err)
	}

	view, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishCartUpdated(ctx, ownerID, itemID, "add", view.Version); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("owner_id", ownerID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return view, nil
}

// RemoveItem drops the owner's line for the item and returns the updated
// view. Removing from a nonexistent cart is an error; removing an item the
// cart never held is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, ownerID, itemID string) (*domain.CartView, error) {
	if err := s.carts.RemoveLine(ctx, ownerID, itemID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart", ownerID)
		}
		return nil, fmt.Errorf("remove cart line: %w", err)
	}

	view, err := s.GetCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.producer.PublishCartUpdated(ctx, ownerID, itemID, "remove", view.Version); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("owner_id", ownerID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("owner_id", ownerID),
		slog.String("item_id", itemID),
	)

	return view, nil
}

// GetCart returns the owner's cart resolved against the catalog. An owner
// without a cart gets the empty view, indistinguishable from an emptied one.
func (s *CartService) GetCart(ctx context.Context, ownerID string) (*domain.CartView, error) {
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.EmptyCartView(), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	view, err := s.resolveView(ctx, cart)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ListCarts returns every cart with its resolved view, for admin inspection.
func (s *CartService) ListCarts(ctx context.Context) ([]domain.CartView, error) {
	carts, err := s.carts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}

	views := make([]domain.CartView, 0, len(carts))
	for i := range carts {
		view, err := s.resolveView(ctx, &carts[i])
		if err != nil {
			return nil, err
		}
		view.OwnerID = carts[i].OwnerID
		views = append(views, *view)
	}
	return views, nil
}

// resolveView joins catalog data onto the cart's lines and derives the total.
// A line whose item has vanished from the catalog is kept with zero price so
// the owner can still see and remove it.
func (s *CartService) resolveView(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	if len(cart.Lines) == 0 {
		view := domain.EmptyCartView()
		view.Version = cart.Version
		return view, nil
	}

	ids := make([]string, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		ids = append(ids, line.ItemID)
	}

	resolved, err := s.catalog.ResolveAll(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart items: %w", err)
	}

	view := &domain.CartView{
		Items:   make([]domain.CartViewLine, 0, len(cart.Lines)),
		Version: cart.Version,
	}
	for _, line := range cart.Lines {
		viewLine := domain.CartViewLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
		}
		if item, ok := resolved[line.ItemID]; ok {
			viewLine.Name = item.Name
			viewLine.Price = item.Price
			viewLine.LineTotal = item.Price * int64(line.Quantity)
		}
		view.TotalPrice += viewLine.LineTotal
		view.Items = append(view.Items, viewLine)
	}

	return view, nil
}
