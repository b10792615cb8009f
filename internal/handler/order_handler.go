package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/service"
)

type FulfillmentService interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, rawStatus string, prepMinutes *int) (*domain.Order, error)
	CreateDelivery(ctx context.Context, input service.CreateDeliveryInput) (*domain.Delivery, error)
	AssignDriver(ctx context.Context, deliveryID string, driverID string) (*domain.Delivery, error)
	ListAttempts(ctx context.Context, actorID string) ([]domain.NotificationAttempt, error)
}

type PromotionService interface {
	ProcessDue(ctx context.Context) (int, error)
}

type OrderHandler struct {
	fulfillment FulfillmentService
	promotions  PromotionService
}

func NewOrderHandler(fulfillment FulfillmentService, promotions PromotionService) (*OrderHandler, error) {
	if fulfillment == nil {
		return nil, fmt.Errorf("fulfillment service is required")
	}
	if promotions == nil {
		return nil, fmt.Errorf("promotion service is required")
	}
	return &OrderHandler{fulfillment: fulfillment, promotions: promotions}, nil
}

func RegisterOrderRoutes(router fiber.Router, fulfillment FulfillmentService, promotions PromotionService) error {
	h, err := NewOrderHandler(fulfillment, promotions)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/orders", h.CreateOrder)
	v1.Post("/orders/process", h.ProcessOrders)
	v1.Get("/orders/:id", h.GetOrder)
	v1.Patch("/orders/:id/status", h.UpdateOrderStatus)
	v1.Post("/deliveries", h.CreateDelivery)
	v1.Patch("/deliveries/:id/driver", h.AssignDriver)
	v1.Get("/actors/:id/attempts", h.ListAttempts)

	return nil
}

type createOrderRequest struct {
	VendorID               string          `json:"vendorId"`
	CustomerID             string          `json:"customerId"`
	ScheduledSendTime      *time.Time      `json:"scheduledSendTime"`
	PreparationTimeMinutes *int            `json:"preparationTimeMinutes"`
	Contents               json.RawMessage `json:"contents"`
}

type updateOrderStatusRequest struct {
	Status                 string `json:"status"`
	PreparationTimeMinutes *int   `json:"preparationTimeMinutes"`
}

type createDeliveryRequest struct {
	OrderID string `json:"orderId"`
}

type assignDriverRequest struct {
	DriverID string `json:"driverId"`
}

type orderResponse struct {
	ID                     string          `json:"id"`
	Status                 string          `json:"status"`
	ScheduledSendTime      *time.Time      `json:"scheduledSendTime,omitempty"`
	SentAt                 *time.Time      `json:"sentAt,omitempty"`
	VendorID               string          `json:"vendorId"`
	CustomerID             string          `json:"customerId"`
	PreparationTimeMinutes *int            `json:"preparationTimeMinutes,omitempty"`
	Contents               json.RawMessage `json:"contents,omitempty"`
	CreatedAt              time.Time       `json:"createdAt"`
	UpdatedAt              time.Time       `json:"updatedAt"`
}

type deliveryResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	DriverID  *string   `json:"driverId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type processOrdersResponse struct {
	Success        bool   `json:"success"`
	ProcessedCount int    `json:"processedCount"`
	Error          string `json:"error,omitempty"`
}

type attemptResponse struct {
	ID                string    `json:"id"`
	TargetActorID     string    `json:"targetActorId"`
	TargetKind        string    `json:"targetKind"`
	Title             string    `json:"title"`
	Body              string    `json:"body"`
	Outcome           string    `json:"outcome"`
	Reason            *string   `json:"reason,omitempty"`
	ProviderMessageID *string   `json:"providerMessageId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type listAttemptsResponse struct {
	Data []attemptResponse `json:"data"`
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.fulfillment.CreateOrder(c.Context(), service.CreateOrderInput{
		VendorID:               req.VendorID,
		CustomerID:             req.CustomerID,
		ScheduledSendTime:      req.ScheduledSendTime,
		PreparationTimeMinutes: req.PreparationTimeMinutes,
		Contents:               req.Contents,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

// ProcessOrders triggers one promotion pass outside the scheduler, for
// operational testing.
func (h *OrderHandler) ProcessOrders(c *fiber.Ctx) error {
	count, err := h.promotions.ProcessDue(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(processOrdersResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(processOrdersResponse{
		Success:        true,
		ProcessedCount: count,
	})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	order, err := h.fulfillment.GetOrder(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponse(order))
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req updateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	order, err := h.fulfillment.UpdateOrderStatus(c.Context(), id, req.Status, req.PreparationTimeMinutes)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponse(order))
}

func (h *OrderHandler) CreateDelivery(c *fiber.Ctx) error {
	var req createDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	delivery, err := h.fulfillment.CreateDelivery(c.Context(), service.CreateDeliveryInput{
		OrderID: req.OrderID,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toDeliveryResponse(delivery))
}

func (h *OrderHandler) AssignDriver(c *fiber.Ctx) error {
	var req assignDriverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	id := strings.TrimSpace(c.Params("id"))
	delivery, err := h.fulfillment.AssignDriver(c.Context(), id, req.DriverID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toDeliveryResponse(delivery))
}

func (h *OrderHandler) ListAttempts(c *fiber.Ctx) error {
	actorID := strings.TrimSpace(c.Params("id"))
	attempts, err := h.fulfillment.ListAttempts(c.Context(), actorID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]attemptResponse, 0, len(attempts))
	for i := range attempts {
		responses = append(responses, toAttemptResponse(&attempts[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listAttemptsResponse{Data: responses})
}

func toOrderResponse(o *domain.Order) orderResponse {
	if o == nil {
		return orderResponse{}
	}

	return orderResponse{
		ID:                     o.ID,
		Status:                 o.Status.String(),
		ScheduledSendTime:      o.ScheduledSendTime,
		SentAt:                 o.SentAt,
		VendorID:               o.VendorID,
		CustomerID:             o.CustomerID,
		PreparationTimeMinutes: o.PreparationTimeMinutes,
		Contents:               o.Contents,
		CreatedAt:              o.CreatedAt,
		UpdatedAt:              o.UpdatedAt,
	}
}

func toDeliveryResponse(d *domain.Delivery) deliveryResponse {
	if d == nil {
		return deliveryResponse{}
	}

	return deliveryResponse{
		ID:        d.ID,
		OrderID:   d.OrderID,
		DriverID:  d.DriverID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func toAttemptResponse(a *domain.NotificationAttempt) attemptResponse {
	if a == nil {
		return attemptResponse{}
	}

	return attemptResponse{
		ID:                a.ID,
		TargetActorID:     a.TargetActorID,
		TargetKind:        a.TargetKind.String(),
		Title:             a.Title,
		Body:              a.Body,
		Outcome:           a.Outcome.String(),
		Reason:            a.Reason,
		ProviderMessageID: a.ProviderMessageID,
		CreatedAt:         a.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
