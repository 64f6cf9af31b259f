package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/shopcart/internal/domain"
	"github.com/utafrali/shopcart/pkg/database"
	apperrors "github.com/utafrali/shopcart/pkg/errors"
)

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	db database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed item repository.
func NewItemRepository(db database.DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new catalog item.
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (id, name, description, price, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.Price,
		item.ImageURL,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}

// GetByID retrieves an item by its ID.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	query := `
		SELECT id, name, description, price, image_url, created_at, updated_at
		FROM items
		WHERE id = $1`

	var item domain.Item
	err := r.db.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Price,
		&item.ImageURL,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}

	return &item, nil
}

// GetByIDs retrieves the items with the given IDs. Missing IDs are simply
// absent from the result.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Item, error) {
	if len(ids) == 0 {
		return []domain.Item{}, nil
	}

	query := `
		SELECT id, name, description, price, image_url, created_at, updated_at
		FROM items
		WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query items by ids: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// List returns all catalog items, newest first.
func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	query := `
		SELECT id, name, description, price, image_url, created_at, updated_at
		FROM items
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func scanItems(rows pgx.Rows) ([]domain.Item, error) {
	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Price,
			&item.ImageURL,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}

	if items == nil {
		items = []domain.Item{}
	}

	return items, nil
}
