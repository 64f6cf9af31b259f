package domain

import (
	"time"
)

// Cart is the mutable staging area for a single owner. It is created lazily
// on first mutation and only ever emptied, never deleted. Version increments
// on every successful mutation.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Lines     []CartLine `json:"items"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLine is one (item, quantity) pair. At most one line exists per item;
// adding an item that already has a line merges quantities.
type CartLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// CartView is the cart as displayed to its owner: lines resolved against the
// catalog, with the total derived at read time. TotalPrice is never persisted.
type CartView struct {
	OwnerID    string         `json:"owner_id,omitempty"`
	Items      []CartViewLine `json:"items"`
	TotalPrice int64          `json:"total_price"`
	Version    int64          `json:"version,omitempty"`
}

// CartViewLine is a display line with catalog data joined in.
type CartViewLine struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// EmptyCartView returns the canonical view of an absent or empty cart.
func EmptyCartView() *CartView {
	return &CartView{Items: []CartViewLine{}, TotalPrice: 0}
}
