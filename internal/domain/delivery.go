package domain

import (
	"fmt"
	"strings"
	"time"
)

// Delivery assigns a driver to an order. DriverID stays nil until a driver
// is assigned.
type Delivery struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	DriverID  *string   `json:"driverId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (d *Delivery) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: delivery is required", ErrValidation)
	}
	if strings.TrimSpace(d.OrderID) == "" {
		return fmt.Errorf("%w: order id is required", ErrValidation)
	}
	return nil
}

// Driver returns the assigned driver id, or "" when unassigned.
func (d *Delivery) Driver() string {
	if d == nil || d.DriverID == nil {
		return ""
	}
	return strings.TrimSpace(*d.DriverID)
}
