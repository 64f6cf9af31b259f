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
	"github.com/utafrali/shopcart/internal/repository"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// ItemService manages the local catalog. Reads go through the gateway so
// they share the cache with cart and checkout resolution.
type ItemService struct {
	items   repository.ItemRepository
	catalog catalog.Gateway
	cache   *catalog.CachedGateway // nil when caching is disabled
	logger  *slog.Logger
}

// NewItemService creates a new item service. cache may be nil.
func NewItemService(
	items repository.ItemRepository,
	gateway catalog.Gateway,
	cache *catalog.CachedGateway,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		items:   items,
		catalog: gateway,
		cache:   cache,
		logger:  logger,
	}
}

// CreateItemInput holds the parameters for adding a catalog item.
type CreateItemInput struct {
	Name        string
	Description string
	Price       int64
	ImageURL    string
}

// CreateItem adds a new item to the catalog.
func (s *ItemService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.Item, error) {
	if input.Name == "" {
		return nil, apperrors.Validation("item name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.Validation("item price must not be negative")
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, item.ID)
	}

	s.logger.InfoContext(ctx, "catalog item created",
		slog.String("item_id", item.ID),
		slog.String("name", item.Name),
	)

	return item, nil
}

// GetItem retrieves a single catalog item.
func (s *ItemService) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.catalog.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("item", id)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListItems returns the full catalog.
func (s *ItemService) ListItems(ctx context.Context) ([]domain.Item, error) {
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}
