package repository

import (
	"context"

	"github.com/utafrali/shopcart/internal/domain"
)

// AccountRepository defines the interface for account persistence operations.
type AccountRepository interface {
	// Create inserts a new account into the store.
	Create(ctx context.Context, account *domain.Account) error

	// GetByID retrieves an account by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// GetByUsername retrieves an account by username.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// List returns all accounts, newest first.
	List(ctx context.Context) ([]domain.Account, error)
}

// SessionRepository defines the interface for session persistence operations.
// The store enforces at most one unrevoked session per account.
type SessionRepository interface {
	// Create inserts a new session. Returns ErrAlreadyLoggedIn (wrapped in an
	// AppError) when the account already has an unrevoked session.
	Create(ctx context.Context, session *domain.Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)

	// GetActiveByAccount retrieves the account's unrevoked, unexpired session.
	GetActiveByAccount(ctx context.Context, accountID string) (*domain.Session, error)

	// DeleteExpired removes the account's unrevoked sessions whose expiry has
	// passed, freeing the single-session slot.
	DeleteExpired(ctx context.Context, accountID string) error

	// Revoke marks the session with the given token hash as revoked.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByAccount revokes all unrevoked sessions for the account.
	RevokeByAccount(ctx context.Context, accountID string) error
}

// ItemRepository defines the interface for catalog item persistence.
type ItemRepository interface {
	// Create inserts a new catalog item.
	Create(ctx context.Context, item *domain.Item) error

	// GetByID retrieves an item by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Item, error)

	// GetByIDs retrieves the items with the given identifiers. Missing IDs are
	// simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Item, error)

	// List returns all catalog items.
	List(ctx context.Context) ([]domain.Item, error)
}

// CartRepository defines the interface for cart persistence. Carts are
// created lazily on first mutation and only ever emptied, never deleted.
type CartRepository interface {
	// AddLine merges quantity into the owner's line for the item, creating
	// the cart and the line as needed. Bumps the cart version.
	AddLine(ctx context.Context, ownerID, itemID string, quantity int) error

	// RemoveLine deletes the owner's line for the item. Returns ErrNotFound
	// when the owner has no cart at all; removing an absent line from an
	// existing cart is a no-op. Bumps the cart version.
	RemoveLine(ctx context.Context, ownerID, itemID string) error

	// Get retrieves the owner's cart with its lines. Returns ErrNotFound when
	// no cart row exists.
	Get(ctx context.Context, ownerID string) (*domain.Cart, error)

	// ListAll returns every cart with its lines.
	ListAll(ctx context.Context) ([]domain.Cart, error)
}

// OrderRepository defines the interface for the append-only order store.
type OrderRepository interface {
	// CreateFromCart atomically inserts the order with its items, empties the
	// owner's cart, and bumps the cart version, all in one transaction. The
	// cart row is locked and its version compared against expectedVersion;
	// a mismatch (the cart changed since it was read) returns ErrConflict and
	// nothing is written.
	CreateFromCart(ctx context.Context, order *domain.Order, expectedVersion int64) error

	// ListByOwner returns the owner's orders with items, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)

	// GetByIDForOwner retrieves one order scoped to its owner. Returns
	// ErrNotFound whether the order is absent or owned by someone else.
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Order, error)

	// ListAll returns every order with items and the owner's username,
	// newest first.
	ListAll(ctx context.Context) ([]domain.OrderSummary, error)
}
