package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/shopcart/internal/domain"
)

const cacheKeyPrefix = "catalog:item:"

// CachedGateway is a read-through Redis cache in front of another Gateway.
// Cache failures degrade to the inner gateway; they are logged, never
// surfaced to the caller.
type CachedGateway struct {
	inner  Gateway
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedGateway wraps the inner gateway with a Redis read-through cache.
func NewCachedGateway(inner Gateway, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedGateway {
	return &CachedGateway{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Resolve returns the item from cache when present, falling through to the
// inner gateway and populating the cache on a miss.
func (g *CachedGateway) Resolve(ctx context.Context, itemID string) (*domain.Item, error) {
	if item, ok := g.lookup(ctx, itemID); ok {
		return item, nil
	}

	item, err := g.inner.Resolve(ctx, itemID)
	if err != nil {
		return nil, err
	}

	g.store(ctx, item)
	return item, nil
}

// ResolveAll serves what it can from cache and asks the inner gateway only
// for the remainder.
func (g *CachedGateway) ResolveAll(ctx context.Context, itemIDs []string) (map[string]domain.Item, error) {
	resolved := make(map[string]domain.Item, len(itemIDs))
	var misses []string

	for _, id := range itemIDs {
		if item, ok := g.lookup(ctx, id); ok {
			resolved[id] = *item
		} else {
			misses = append(misses, id)
		}
	}

	if len(misses) == 0 {
		return resolved, nil
	}

	fetched, err := g.inner.ResolveAll(ctx, misses)
	if err != nil {
		return nil, err
	}

	for id, item := range fetched {
		resolved[id] = item
		g.store(ctx, &item)
	}

	return resolved, nil
}

func (g *CachedGateway) lookup(ctx context.Context, itemID string) (*domain.Item, bool) {
	data, err := g.client.Get(ctx, cacheKeyPrefix+itemID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			g.logger.WarnContext(ctx, "catalog cache read failed",
				slog.String("item_id", itemID),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var item domain.Item
	if err := json.Unmarshal(data, &item); err != nil {
		g.logger.WarnContext(ctx, "catalog cache entry corrupt, ignoring",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return &item, true
}

func (g *CachedGateway) store(ctx context.Context, item *domain.Item) {
	data, err := json.Marshal(item)
	if err != nil {
		return
	}

	if err := g.client.Set(ctx, cacheKeyPrefix+item.ID, data, g.ttl).Err(); err != nil {
		g.logger.WarnContext(ctx, "catalog cache write failed",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Invalidate drops the cached entry for an item, called after catalog writes.
func (g *CachedGateway) Invalidate(ctx context.Context, itemID string) {
	if err := g.client.Del(ctx, cacheKeyPrefix+itemID).Err(); err != nil {
		g.logger.WarnContext(ctx, "catalog cache invalidation failed",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface checks.
var (
	_ Gateway = (*LocalGateway)(nil)
	_ Gateway = (*RemoteGateway)(nil)
	_ Gateway = (*CachedGateway)(nil)
)
