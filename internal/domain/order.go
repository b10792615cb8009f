package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the lifecycle state of an order. The path is
// monotonic: pending -> sent -> preparing -> completed.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusPreparing OrderStatus = "start preparing"
	OrderStatusCompleted OrderStatus = "completed"
)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusSent, OrderStatusPreparing, OrderStatusCompleted:
		return true
	}
	return false
}

// rank orders the statuses along the lifecycle path. Unknown statuses rank
// below pending so no guarded transition ever accepts them as a source.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPending:
		return 1
	case OrderStatusSent:
		return 2
	case OrderStatusPreparing:
		return 3
	case OrderStatusCompleted:
		return 4
	}
	return 0
}

// CanTransitionTo reports whether moving to next keeps the status path
// monotonic.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	return next.rank() > s.rank()
}

// ParseOrderStatus normalizes a raw store-level status string. Matching is
// case-insensitive; unrecognized values are returned normalized with ok=false
// so callers can treat them as the no-op branch instead of failing.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	return normalized, normalized.IsValid()
}

// Order is one customer purchase as seen by the dispatcher.
type Order struct {
	ID                     string          `json:"id"`
	Status                 OrderStatus     `json:"status"`
	ScheduledSendTime      *time.Time      `json:"scheduledSendTime,omitempty"`
	SentAt                 *time.Time      `json:"sentAt,omitempty"`
	VendorID               string          `json:"vendorId"`
	CustomerID             string          `json:"customerId"`
	PreparationTimeMinutes *int            `json:"preparationTimeMinutes,omitempty"`
	Contents               json.RawMessage `json:"contents,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

func (o *Order) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: order is required", ErrValidation)
	}
	if strings.TrimSpace(o.VendorID) == "" {
		return fmt.Errorf("%w: vendor id is required", ErrValidation)
	}
	if strings.TrimSpace(o.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, o.Status)
	}
	if o.PreparationTimeMinutes != nil && *o.PreparationTimeMinutes <= 0 {
		return fmt.Errorf("%w: preparation time must be positive", ErrValidation)
	}
	return nil
}

// MirroredOrder is the vendor-facing snapshot written once at promotion time.
type MirroredOrder struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	VendorID  string          `json:"vendorId"`
	Status    OrderStatus     `json:"status"`
	SentAt    time.Time       `json:"sentAt"`
	Contents  json.RawMessage `json:"contents,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
