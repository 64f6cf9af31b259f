package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every published message is wrapped in. Consumers key
// on EventType; AggregateID doubles as the Kafka message key so events for
// one aggregate land on one partition in order.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh ID and timestamp.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		Data:          payload,
	}, nil
}

// Marshal serializes the full envelope to JSON.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
