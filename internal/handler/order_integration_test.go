package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/service"
	"github.com/plateful/order-dispatch/internal/transport"
)

type stubFulfillmentService struct {
	createOrderFn       func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	getOrderFn          func(ctx context.Context, id string) (*domain.Order, error)
	updateOrderStatusFn func(ctx context.Context, id string, rawStatus string, prepMinutes *int) (*domain.Order, error)
	createDeliveryFn    func(ctx context.Context, input service.CreateDeliveryInput) (*domain.Delivery, error)
	assignDriverFn      func(ctx context.Context, deliveryID string, driverID string) (*domain.Delivery, error)
	listAttemptsFn      func(ctx context.Context, actorID string) ([]domain.NotificationAttempt, error)
}

func (s *stubFulfillmentService) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
	return s.createOrderFn(ctx, input)
}

func (s *stubFulfillmentService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderFn(ctx, id)
}

func (s *stubFulfillmentService) UpdateOrderStatus(ctx context.Context, id string, rawStatus string, prepMinutes *int) (*domain.Order, error) {
	return s.updateOrderStatusFn(ctx, id, rawStatus, prepMinutes)
}

func (s *stubFulfillmentService) CreateDelivery(ctx context.Context, input service.CreateDeliveryInput) (*domain.Delivery, error) {
	return s.createDeliveryFn(ctx, input)
}

func (s *stubFulfillmentService) AssignDriver(ctx context.Context, deliveryID string, driverID string) (*domain.Delivery, error) {
	return s.assignDriverFn(ctx, deliveryID, driverID)
}

func (s *stubFulfillmentService) ListAttempts(ctx context.Context, actorID string) ([]domain.NotificationAttempt, error) {
	return s.listAttemptsFn(ctx, actorID)
}

type stubPromotionService struct {
	processDueFn func(ctx context.Context) (int, error)
}

func (s *stubPromotionService) ProcessDue(ctx context.Context) (int, error) {
	return s.processDueFn(ctx)
}

func TestOrderIntegration_CreateOrder(t *testing.T) {
	t.Parallel()

	svc := &stubFulfillmentService{
		createOrderFn: func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
			if input.VendorID == "" {
				return nil, domain.ErrValidation
			}
			return &domain.Order{
				ID:         "ord-created",
				Status:     domain.OrderStatusPending,
				VendorID:   input.VendorID,
				CustomerID: input.CustomerID,
			}, nil
		},
	}

	app := newOrderTestApp(t, svc, &stubPromotionService{processDueFn: func(ctx context.Context) (int, error) { return 0, nil }})

	validBody := `{"vendorId":"vendor-1","customerId":"cust-1","contents":{"items":["pizza"]}}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/orders", validBody)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != "ord-created" {
		t.Fatalf("id = %v, want ord-created", created["id"])
	}
	if created["status"] != domain.OrderStatusPending.String() {
		t.Fatalf("status = %v, want pending", created["status"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/orders", `{"customerId":"cust-1"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing vendor", resp.StatusCode)
	}
}

func TestOrderIntegration_ProcessOrders(t *testing.T) {
	t.Parallel()

	promotions := &stubPromotionService{
		processDueFn: func(ctx context.Context) (int, error) {
			return 3, nil
		},
	}

	app := newOrderTestApp(t, noopFulfillment(), promotions)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/orders/process", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var result processOrdersResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if !result.Success {
		t.Fatal("success = false, want true")
	}
	if result.ProcessedCount != 3 {
		t.Fatalf("processedCount = %d, want 3", result.ProcessedCount)
	}
	if result.Error != "" {
		t.Fatalf("error = %q, want empty", result.Error)
	}
}

func TestOrderIntegration_ProcessOrdersFailure(t *testing.T) {
	t.Parallel()

	promotions := &stubPromotionService{
		processDueFn: func(ctx context.Context) (int, error) {
			return 0, errors.New("db down")
		},
	}

	app := newOrderTestApp(t, noopFulfillment(), promotions)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/orders/process", "")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var result processOrdersResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if result.Success {
		t.Fatal("success = true, want false")
	}
	if result.Error == "" {
		t.Fatal("error is empty, want failure detail")
	}
}

func TestOrderIntegration_UpdateOrderStatus(t *testing.T) {
	t.Parallel()

	minutes := 30
	svc := noopFulfillment()
	svc.updateOrderStatusFn = func(ctx context.Context, id string, rawStatus string, prepMinutes *int) (*domain.Order, error) {
		if id == "missing" {
			return nil, domain.ErrNotFound
		}
		status, ok := domain.ParseOrderStatus(rawStatus)
		if !ok || (status != domain.OrderStatusPreparing && status != domain.OrderStatusCompleted) {
			return nil, domain.ErrValidation
		}
		return &domain.Order{
			ID:                     id,
			Status:                 status,
			VendorID:               "vendor-1",
			CustomerID:             "cust-1",
			PreparationTimeMinutes: prepMinutes,
		}, nil
	}

	app := newOrderTestApp(t, svc, &stubPromotionService{processDueFn: func(ctx context.Context) (int, error) { return 0, nil }})

	resp, body := performRequest(t, app, http.MethodPatch, "/v1/orders/ord-1/status",
		`{"status":"Start Preparing","preparationTimeMinutes":30}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var updated orderResponse
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if updated.Status != domain.OrderStatusPreparing.String() {
		t.Fatalf("status = %q, want %q", updated.Status, domain.OrderStatusPreparing)
	}
	if updated.PreparationTimeMinutes == nil || *updated.PreparationTimeMinutes != minutes {
		t.Fatalf("preparationTimeMinutes = %v, want %d", updated.PreparationTimeMinutes, minutes)
	}

	resp, _ = performRequest(t, app, http.MethodPatch, "/v1/orders/ord-1/status", `{"status":"cancelled"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown status", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPatch, "/v1/orders/missing/status", `{"status":"completed"}`)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404 for missing order", resp.StatusCode)
	}
}

func TestOrderIntegration_AssignDriver(t *testing.T) {
	t.Parallel()

	svc := noopFulfillment()
	svc.assignDriverFn = func(ctx context.Context, deliveryID string, driverID string) (*domain.Delivery, error) {
		return &domain.Delivery{ID: deliveryID, OrderID: "ord-1", DriverID: &driverID}, nil
	}

	app := newOrderTestApp(t, svc, &stubPromotionService{processDueFn: func(ctx context.Context) (int, error) { return 0, nil }})

	resp, body := performRequest(t, app, http.MethodPatch, "/v1/deliveries/del-1/driver", `{"driverId":"drv-9"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var updated deliveryResponse
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if updated.DriverID == nil || *updated.DriverID != "drv-9" {
		t.Fatalf("driverId = %v, want drv-9", updated.DriverID)
	}
}

func TestOrderIntegration_ListAttempts(t *testing.T) {
	t.Parallel()

	reason := "no device registered"
	svc := noopFulfillment()
	svc.listAttemptsFn = func(ctx context.Context, actorID string) ([]domain.NotificationAttempt, error) {
		return []domain.NotificationAttempt{
			{
				ID:            "att-1",
				TargetActorID: actorID,
				TargetKind:    domain.ActorKindVendor,
				Title:         "New Order Received",
				Outcome:       domain.AttemptOutcomeNoToken,
				Reason:        &reason,
				CreatedAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
			},
		}, nil
	}

	app := newOrderTestApp(t, svc, &stubPromotionService{processDueFn: func(ctx context.Context) (int, error) { return 0, nil }})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/actors/vendor-1/attempts", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var result listAttemptsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(result.Data) != 1 {
		t.Fatalf("attempts = %d, want 1", len(result.Data))
	}
	if result.Data[0].Outcome != domain.AttemptOutcomeNoToken.String() {
		t.Fatalf("outcome = %q, want no-token", result.Data[0].Outcome)
	}
}

func noopFulfillment() *stubFulfillmentService {
	return &stubFulfillmentService{
		createOrderFn: func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
			return &domain.Order{ID: "ord-1"}, nil
		},
		getOrderFn: func(ctx context.Context, id string) (*domain.Order, error) {
			return &domain.Order{ID: id}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, id string, rawStatus string, prepMinutes *int) (*domain.Order, error) {
			return &domain.Order{ID: id}, nil
		},
		createDeliveryFn: func(ctx context.Context, input service.CreateDeliveryInput) (*domain.Delivery, error) {
			return &domain.Delivery{ID: "del-1", OrderID: input.OrderID}, nil
		},
		assignDriverFn: func(ctx context.Context, deliveryID string, driverID string) (*domain.Delivery, error) {
			return &domain.Delivery{ID: deliveryID}, nil
		},
		listAttemptsFn: func(ctx context.Context, actorID string) ([]domain.NotificationAttempt, error) {
			return nil, nil
		},
	}
}

func newOrderTestApp(t *testing.T, fulfillment FulfillmentService, promotions PromotionService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterOrderRoutes(app, fulfillment, promotions); err != nil {
		t.Fatalf("RegisterOrderRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}
