package catalog

import (
	"context"

	"github.com/utafrali/shopcart/internal/domain"
)

// Gateway is the seam between the cart/checkout core and the catalog. The
// core treats the catalog as a read-mostly collaborator: it needs existence
// checks, display data, and current prices, nothing else.
type Gateway interface {
	// Resolve returns the item with the given ID, or ErrNotFound.
	Resolve(ctx context.Context, itemID string) (*domain.Item, error)

	// ResolveAll returns the items for the given IDs keyed by ID. IDs that no
	// longer resolve are absent from the map; the caller decides whether that
	// is an error.
	ResolveAll(ctx context.Context, itemIDs []string) (map[string]domain.Item, error)
}
