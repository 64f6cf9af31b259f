package domain

import (
	"time"
)

// OrderStatusConfirmed is the only status an order ever has.
const OrderStatusConfirmed = "confirmed"

// Order is an immutable record produced by checkout. TotalAmount is the sum
// of line price-at-purchase times quantity, fixed at checkout time.
type Order struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Status      string      `json:"status"`
	TotalAmount int64       `json:"total_amount"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OrderItem is one order line with the item's price and name snapshotted at
// purchase time, so later catalog edits never change the record.
type OrderItem struct {
	ID              string `json:"id"`
	OrderID         string `json:"-"`
	ItemID          string `json:"item_id"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase int64  `json:"price_at_purchase"`
	Position        int    `json:"-"`
}

// OrderSummary is an order with the owner's username resolved, used by the
// admin listing.
type OrderSummary struct {
	Order
	OwnerUsername string `json:"owner_username,omitempty"`
}
