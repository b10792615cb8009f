package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/plateful/order-dispatch/internal/domain"
)

// Collection names a monitored document collection.
type Collection string

const (
	CollectionOrders     Collection = "orders"
	CollectionDeliveries Collection = "deliveries"
)

func (c Collection) String() string { return string(c) }

func (c Collection) IsValid() bool {
	switch c {
	case CollectionOrders, CollectionDeliveries:
		return true
	}
	return false
}

// ChangeEvent is the broker payload describing one document update. Every
// writer of a monitored document publishes it; consumers re-derive what
// changed from the snapshots rather than trusting the writer.
type ChangeEvent struct {
	Collection Collection      `json:"collection"`
	DocumentID string          `json:"documentId"`
	Before     json.RawMessage `json:"before"`
	After      json.RawMessage `json:"after"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func (e ChangeEvent) Validate() error {
	if !e.Collection.IsValid() {
		return fmt.Errorf("invalid collection %q", e.Collection)
	}
	if strings.TrimSpace(e.DocumentID) == "" {
		return fmt.Errorf("documentId is required")
	}
	if len(e.Before) == 0 {
		return fmt.Errorf("before snapshot is required")
	}
	if len(e.After) == 0 {
		return fmt.Errorf("after snapshot is required")
	}
	return nil
}

// NewOrderChange builds the change event for an order update.
func NewOrderChange(before, after domain.Order, occurredAt time.Time) (ChangeEvent, error) {
	beforeRaw, err := json.Marshal(before)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to marshal order before snapshot: %w", err)
	}
	afterRaw, err := json.Marshal(after)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to marshal order after snapshot: %w", err)
	}

	return ChangeEvent{
		Collection: CollectionOrders,
		DocumentID: after.ID,
		Before:     beforeRaw,
		After:      afterRaw,
		OccurredAt: occurredAt.UTC(),
	}, nil
}

// NewDeliveryChange builds the change event for a delivery update.
func NewDeliveryChange(before, after domain.Delivery, occurredAt time.Time) (ChangeEvent, error) {
	beforeRaw, err := json.Marshal(before)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to marshal delivery before snapshot: %w", err)
	}
	afterRaw, err := json.Marshal(after)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("failed to marshal delivery after snapshot: %w", err)
	}

	return ChangeEvent{
		Collection: CollectionDeliveries,
		DocumentID: after.ID,
		Before:     beforeRaw,
		After:      afterRaw,
		OccurredAt: occurredAt.UTC(),
	}, nil
}

// OrderSnapshots decodes the before/after order snapshots.
func (e ChangeEvent) OrderSnapshots() (domain.Order, domain.Order, error) {
	var before, after domain.Order
	if e.Collection != CollectionOrders {
		return before, after, fmt.Errorf("event is for collection %q, not orders", e.Collection)
	}
	if err := json.Unmarshal(e.Before, &before); err != nil {
		return before, after, fmt.Errorf("failed to decode order before snapshot: %w", err)
	}
	if err := json.Unmarshal(e.After, &after); err != nil {
		return before, after, fmt.Errorf("failed to decode order after snapshot: %w", err)
	}
	return before, after, nil
}

// DeliverySnapshots decodes the before/after delivery snapshots.
func (e ChangeEvent) DeliverySnapshots() (domain.Delivery, domain.Delivery, error) {
	var before, after domain.Delivery
	if e.Collection != CollectionDeliveries {
		return before, after, fmt.Errorf("event is for collection %q, not deliveries", e.Collection)
	}
	if err := json.Unmarshal(e.Before, &before); err != nil {
		return before, after, fmt.Errorf("failed to decode delivery before snapshot: %w", err)
	}
	if err := json.Unmarshal(e.After, &after); err != nil {
		return before, after, fmt.Errorf("failed to decode delivery after snapshot: %w", err)
	}
	return before, after, nil
}
