package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/pkg/database"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
// Line merging relies on the (owner_id, item_id) primary key: adding an item
// that already has a line is an ON CONFLICT quantity merge, so concurrent
// adds never lose updates.
type CartRepository struct {
	db database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// AddLine merges quantity into the owner's line for the item, creating the
// cart row lazily. The cart version bump and the line upsert commit together.
func (r *CartRepository) AddLine(ctx context.Context, ownerID, itemID string, quantity int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO carts (owner_id, version, created_at, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (owner_id) DO UPDATE SET version = carts.version + 1, updated_at = EXCLUDED.updated_at`,
		ownerID, now,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (owner_id, item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, item_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		ownerID, itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// RemoveLine deletes the owner's line for the item. An absent line is a
// no-op; an absent cart is ErrNotFound.
func (r *CartRepository) RemoveLine(ctx context.Context, ownerID, itemID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx,
		`UPDATE carts SET version = version + 1, updated_at = $1 WHERE owner_id = $2`,
		time.Now().UTC(), ownerID,
	)
	if err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart", ownerID)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM cart_items WHERE owner_id = $1 AND item_id = $2`,
		ownerID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Get retrieves the owner's cart with its lines.
func (r *CartRepository) Get(ctx context.Context, ownerID string) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.QueryRow(ctx,
		`SELECT owner_id, version, created_at, updated_at FROM carts WHERE owner_id = $1`,
		ownerID,
	).Scan(&c.OwnerID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT item_id, quantity FROM cart_items WHERE owner_id = $1 ORDER BY item_id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	c.Lines, err = scanCartLines(rows)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListAll returns every cart with its lines.
func (r *CartRepository) ListAll(ctx context.Context) ([]domain.Cart, error) {
	rows, err := r.db.Query(ctx,
		`SELECT owner_id, version, created_at, updated_at FROM carts ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	var carts []domain.Cart
	for rows.Next() {
		var c domain.Cart
		if err := rows.Scan(&c.OwnerID, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		c.Lines = []domain.CartLine{}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	if carts == nil {
		return []domain.Cart{}, nil
	}

	lineRows, err := r.db.Query(ctx,
		`SELECT owner_id, item_id, quantity FROM cart_items ORDER BY owner_id, item_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer lineRows.Close()

	linesByOwner := make(map[string][]domain.CartLine)
	for lineRows.Next() {
		var ownerID string
		var line domain.CartLine
		if err := lineRows.Scan(&ownerID, &line.ItemID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line row: %w", err)
		}
		linesByOwner[ownerID] = append(linesByOwner[ownerID], line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart line rows: %w", err)
	}

	for i := range carts {
		if lines, ok := linesByOwner[carts[i].OwnerID]; ok {
			carts[i].Lines = lines
		}
	}

	return carts, nil
}

func scanCartLines(rows pgx.Rows) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ItemID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line row: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart line rows: %w", err)
	}

	if lines == nil {
		lines = []domain.CartLine{}
	}

	return lines, nil
}
