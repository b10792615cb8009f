package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/queue"
	"github.com/plateful/order-dispatch/internal/repository"
)

// FulfillmentService owns the write path for orders and deliveries. Every
// mutation publishes a change event so the router sees the same stream
// regardless of which writer produced the update.
type FulfillmentService struct {
	orders     repository.OrderRepository
	deliveries repository.DeliveryRepository
	attempts   repository.AttemptRepository
	publisher  queue.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewFulfillmentService(
	orders repository.OrderRepository,
	deliveries repository.DeliveryRepository,
	attempts repository.AttemptRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*FulfillmentService, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FulfillmentService{
		orders:     orders,
		deliveries: deliveries,
		attempts:   attempts,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}, nil
}

type CreateOrderInput struct {
	VendorID               string          `json:"vendorId"`
	CustomerID             string          `json:"customerId"`
	ScheduledSendTime      *time.Time      `json:"scheduledSendTime"`
	PreparationTimeMinutes *int            `json:"preparationTimeMinutes"`
	Contents               json.RawMessage `json:"contents"`
}

// CreateOrder stores a new order in pending state. The order stays invisible
// to the vendor until the promotion engine flips it to sent.
func (s *FulfillmentService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	order := &domain.Order{
		ID:                     uuid.NewString(),
		Status:                 domain.OrderStatusPending,
		ScheduledSendTime:      input.ScheduledSendTime,
		VendorID:               strings.TrimSpace(input.VendorID),
		CustomerID:             strings.TrimSpace(input.CustomerID),
		PreparationTimeMinutes: input.PreparationTimeMinutes,
		Contents:               input.Contents,
	}
	if order.ScheduledSendTime == nil {
		now := s.now().UTC()
		order.ScheduledSendTime = &now
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

func (s *FulfillmentService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}
	return s.orders.GetByID(ctx, id)
}

// UpdateOrderStatus applies a vendor-driven status transition. Raw status
// input is parsed case-insensitively; pending and sent are engine-owned and
// rejected as targets.
func (s *FulfillmentService) UpdateOrderStatus(
	ctx context.Context,
	id string,
	rawStatus string,
	prepMinutes *int,
) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	status, ok := domain.ParseOrderStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrValidation, rawStatus)
	}
	if status != domain.OrderStatusPreparing && status != domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: status %q cannot be set through the fulfillment API", domain.ErrValidation, status)
	}
	if prepMinutes != nil && *prepMinutes <= 0 {
		return nil, fmt.Errorf("%w: preparationTimeMinutes must be positive", domain.ErrValidation)
	}

	before, after, err := s.orders.TransitionStatus(ctx, id, status, prepMinutes)
	if err != nil {
		return nil, err
	}

	s.publishOrderChange(ctx, before, after)
	return after, nil
}

type CreateDeliveryInput struct {
	OrderID string `json:"orderId"`
}

// CreateDelivery stores an unassigned delivery for an existing order.
func (s *FulfillmentService) CreateDelivery(ctx context.Context, input CreateDeliveryInput) (*domain.Delivery, error) {
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", domain.ErrValidation)
	}

	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	delivery := &domain.Delivery{
		ID:      uuid.NewString(),
		OrderID: orderID,
	}
	if err := delivery.Validate(); err != nil {
		return nil, err
	}

	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}

	return delivery, nil
}

// AssignDriver sets the delivery's driver and publishes the change event.
// The write goes through even when the driver is unchanged; the router
// decides from the snapshots whether anyone gets notified.
func (s *FulfillmentService) AssignDriver(ctx context.Context, deliveryID string, driverID string) (*domain.Delivery, error) {
	if strings.TrimSpace(deliveryID) == "" {
		return nil, fmt.Errorf("%w: delivery id is required", domain.ErrValidation)
	}
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, fmt.Errorf("%w: driverId is required", domain.ErrValidation)
	}

	before, after, err := s.deliveries.AssignDriver(ctx, deliveryID, driverID)
	if err != nil {
		return nil, err
	}

	s.publishDeliveryChange(ctx, before, after)
	return after, nil
}

func (s *FulfillmentService) ListAttempts(ctx context.Context, actorID string) ([]domain.NotificationAttempt, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("%w: actor id is required", domain.ErrValidation)
	}
	if s.attempts == nil {
		return nil, nil
	}
	return s.attempts.ListByTarget(ctx, actorID)
}

func (s *FulfillmentService) publishOrderChange(ctx context.Context, before, after *domain.Order) {
	if s.publisher == nil || before == nil || after == nil {
		return
	}

	event, err := queue.NewOrderChange(*before, *after, s.now())
	if err != nil {
		s.logger.Error("failed to build order change event",
			zap.String("orderId", after.ID),
			zap.Error(err),
		)
		return
	}
	if err := s.publisher.Publish(ctx, queue.QueueName(queue.CollectionOrders), event); err != nil {
		s.logger.Error("failed to publish order change event",
			zap.String("orderId", after.ID),
			zap.Error(err),
		)
	}
}

func (s *FulfillmentService) publishDeliveryChange(ctx context.Context, before, after *domain.Delivery) {
	if s.publisher == nil || before == nil || after == nil {
		return
	}

	event, err := queue.NewDeliveryChange(*before, *after, s.now())
	if err != nil {
		s.logger.Error("failed to build delivery change event",
			zap.String("deliveryId", after.ID),
			zap.Error(err),
		)
		return
	}
	if err := s.publisher.Publish(ctx, queue.QueueName(queue.CollectionDeliveries), event); err != nil {
		s.logger.Error("failed to publish delivery change event",
			zap.String("deliveryId", after.ID),
			zap.Error(err),
		)
	}
}
