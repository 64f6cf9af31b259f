package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/internal/repository"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// LocalGateway resolves items against the service's own items table.
type LocalGateway struct {
	items repository.ItemRepository
}

// NewLocalGateway creates a gateway backed by the local item repository.
func NewLocalGateway(items repository.ItemRepository) *LocalGateway {
	return &LocalGateway{items: items}
}

// Resolve returns the item with the given ID.
func (g *LocalGateway) Resolve(ctx context.Context, itemID string) (*domain.Item, error) {
	item, err := g.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("resolve item %s: %w", itemID, err)
	}
	return item, nil
}

// ResolveAll returns the items for the given IDs keyed by ID.
func (g *LocalGateway) ResolveAll(ctx context.Context, itemIDs []string) (map[string]domain.Item, error) {
	items, err := g.items.GetByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve items: %w", err)
	}

	resolved := make(map[string]domain.Item, len(items))
	for _, item := range items {
		resolved[item.ID] = item
	}
	return resolved, nil
}
