package notify

import (
	"fmt"
	"strings"

	"github.com/plateful/order-dispatch/internal/domain"
)

// Payload is a composed push notification. A nil *Payload from a compose
// function means the change does not warrant a notification.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// ComposeOrderCreated builds the vendor-facing notification for an order
// that just became visible to its restaurant.
func ComposeOrderCreated(order *domain.Order) *Payload {
	if order == nil {
		return nil
	}

	return &Payload{
		Title: "New Order Received",
		Body:  fmt.Sprintf("You have a new order: %s.", order.ID),
		Data: map[string]string{
			"orderId": order.ID,
			"status":  order.Status.String(),
		},
	}
}

// ComposeOrderStatusChange builds the customer-facing notification for an
// order status transition. Transitions outside the notified set are
// suppressed.
func ComposeOrderStatusChange(before, after *domain.Order) *Payload {
	if before == nil || after == nil {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(before.Status.String()), strings.TrimSpace(after.Status.String())) {
		return nil
	}

	status, ok := domain.ParseOrderStatus(after.Status.String())
	if !ok {
		return nil
	}

	var body string
	switch status {
	case domain.OrderStatusPreparing:
		if after.PreparationTimeMinutes == nil {
			return nil
		}
		body = fmt.Sprintf("Your order will be ready in %d minutes.", *after.PreparationTimeMinutes)
	case domain.OrderStatusCompleted:
		body = "Your order is on the way!"
	default:
		return nil
	}

	return &Payload{
		Title: "Order Update",
		Body:  body,
		Data: map[string]string{
			"orderId": after.ID,
			"status":  status.String(),
		},
	}
}

// ComposeDriverAssignment builds the driver-facing notification for a
// delivery that just gained its first driver. Reassignments and
// unassignments are suppressed.
func ComposeDriverAssignment(before, after *domain.Delivery) *Payload {
	if before == nil || after == nil {
		return nil
	}
	if before.Driver() != "" || after.Driver() == "" {
		return nil
	}

	return &Payload{
		Title: "New Delivery Assignment",
		Body:  "You have been assigned a new delivery.",
		Data: map[string]string{
			"deliveryId": after.ID,
			"orderId":    after.OrderID,
		},
	}
}
