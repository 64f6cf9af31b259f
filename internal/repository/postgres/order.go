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

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateFromCart inserts the order with its items, empties the owner's cart,
// and bumps the cart version in a single transaction. The cart row is locked
// with FOR UPDATE, so concurrent checkouts for the same owner serialize; the
// version check then rejects an order built from a cart snapshot that has
// changed since it was read.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *domain.Order, expectedVersion int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx,
		`SELECT version FROM carts WHERE owner_id = $1 FOR UPDATE`,
		o.OwnerID,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.Conflict("cart no longer exists")
		}
		return fmt.Errorf("lock cart: %w", err)
	}

	if version != expectedVersion {
		return apperrors.Conflict("cart changed during checkout")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, owner_id, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.OwnerID, o.Status, o.TotalAmount, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, item_id, name, quantity, price_at_purchase, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, o.ID, item.ItemID, item.Name, item.Quantity, item.PriceAtPurchase, item.Position,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, o.OwnerID)
	if err != nil {
		return fmt.Errorf("empty cart: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE carts SET version = version + 1, updated_at = $1 WHERE owner_id = $2`,
		time.Now().UTC(), o.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListByOwner returns the owner's orders with items, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, status, total_amount, created_at
		FROM orders
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetByIDForOwner retrieves one order scoped to its owner. The query filters
// on both id and owner_id, so an order owned by someone else is
// indistinguishable from one that does not exist.
func (r *OrderRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_id, status, total_amount, created_at
		FROM orders
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&o.ID, &o.OwnerID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	orders := []domain.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// ListAll returns every order with items and the owner's username, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.owner_id, o.status, o.total_amount, o.created_at, a.username
		FROM orders o
		JOIN accounts a ON a.id = o.owner_id
		ORDER BY o.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	var summaries []domain.OrderSummary
	for rows.Next() {
		var s domain.OrderSummary
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Status, &s.TotalAmount, &s.CreatedAt, &s.OwnerUsername); err != nil {
			return nil, fmt.Errorf("scan order summary row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order summary rows: %w", err)
	}

	if summaries == nil {
		return []domain.OrderSummary{}, nil
	}

	orders := make([]domain.Order, len(summaries))
	for i := range summaries {
		orders[i] = summaries[i].Order
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	for i := range summaries {
		summaries[i].Order = orders[i]
	}

	return summaries, nil
}

// attachItems loads order_items for the given orders in one query and groups
// them onto their orders, preserving line position.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, item_id, name, quantity, price_at_purchase, position
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ItemID,
			&item.Name,
			&item.Quantity,
			&item.PriceAtPurchase,
			&item.Position,
		); err != nil {
			return fmt.Errorf("scan order item row: %w", err)
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order item rows: %w", err)
	}

	for i := range orders {
		items := itemsByOrder[orders[i].ID]
		if items == nil {
			items = []domain.OrderItem{}
		}
		orders[i].Items = items
	}

	return nil
}

func scanOrders(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.OwnerID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	return orders, nil
}
