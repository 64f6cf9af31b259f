package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/shopcart/internal/domain"
	pkgkafka "github.com/utafrali/shopcart/pkg/kafka"
)

// Kafka topic constants for shopcart domain events.
const (
	TopicAccountRegistered = "shopcart.account.registered"
	TopicCartUpdated       = "shopcart.cart.updated"
	TopicOrderCreated      = "shopcart.order.created"
)

// Aggregate type constants.
const (
	AggregateTypeAccount = "account"
	AggregateTypeCart    = "cart"
	AggregateTypeOrder   = "order"
)

// Source identifier for events originating from this service.
const Source = "shopcart"

// AccountRegisteredData is the payload for an account.registered event.
type AccountRegisteredData struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	OwnerID string `json:"owner_id"`
	ItemID  string `json:"item_id"`
	Action  string `json:"action"` // "add" or "remove"
	Version int64  `json:"version,omitempty"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     string `json:"order_id"`
	OwnerID     string `json:"owner_id"`
	TotalAmount int64  `json:"total_amount"`
	LineCount   int    `json:"line_count"`
}

// publisher is the slice of pkg/kafka.Producer this package needs.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes shopcart domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishAccountRegistered publishes an account.registered event.
func (p *Producer) PublishAccountRegistered(ctx context.Context, account *domain.Account) error {
	data := AccountRegisteredData{
		ID:       account.ID,
		Username: account.Username,
	}

	event, err := pkgkafka.NewEvent(TopicAccountRegistered, account.ID, AggregateTypeAccount, Source, data)
	if err != nil {
		return fmt.Errorf("create account.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicAccountRegistered, event); err != nil {
		return fmt.Errorf("publish account.registered event: %w", err)
	}

	return nil
}

// PublishCartUpdated publishes a cart.updated event. Version is the cart's
// version after the mutation, so consumers can order events per cart.
func (p *Producer) PublishCartUpdated(ctx context.Context, ownerID, itemID, action string, version int64) error {
	data := CartUpdatedData{
		OwnerID: ownerID,
		ItemID:  itemID,
		Action:  action,
		Version: version,
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, ownerID, AggregateTypeCart, Source, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:     order.ID,
		OwnerID:     order.OwnerID,
		TotalAmount: order.TotalAmount,
		LineCount:   len(order.Items),
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeOrder, Source, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	return nil
}
