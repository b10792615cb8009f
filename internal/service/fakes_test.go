package service

import (
	"context"
	"sync"
	"time"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/notify"
	"github.com/plateful/order-dispatch/internal/provider"
	"github.com/plateful/order-dispatch/internal/queue"
)

type fakeOrderRepo struct {
	createFn           func(ctx context.Context, o *domain.Order) error
	getByIDFn          func(ctx context.Context, id string) (*domain.Order, error)
	promoteDueFn       func(ctx context.Context, now time.Time) ([]domain.Order, error)
	transitionStatusFn func(ctx context.Context, id string, to domain.OrderStatus, prepMinutes *int) (*domain.Order, *domain.Order, error)
}

func (f *fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if f.createFn != nil {
		return f.createFn(ctx, o)
	}
	return nil
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOrderRepo) PromoteDue(ctx context.Context, now time.Time) ([]domain.Order, error) {
	if f.promoteDueFn != nil {
		return f.promoteDueFn(ctx, now)
	}
	return nil, nil
}

func (f *fakeOrderRepo) TransitionStatus(ctx context.Context, id string, to domain.OrderStatus, prepMinutes *int) (*domain.Order, *domain.Order, error) {
	if f.transitionStatusFn != nil {
		return f.transitionStatusFn(ctx, id, to, prepMinutes)
	}
	return nil, nil, domain.ErrNotFound
}

// orderStore is a stateful order repository whose PromoteDue applies the
// same eligibility predicate as the guarded promotion statement: pending
// status and a scheduled send time at or before now.
type orderStore struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (s *orderStore) seed(orders ...domain.Order) {
	s.mu.Lock()
	s.orders = append(s.orders, orders...)
	s.mu.Unlock()
}

func (s *orderStore) Create(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	s.orders = append(s.orders, *o)
	s.mu.Unlock()
	return nil
}

func (s *orderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			o := s.orders[i]
			return &o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *orderStore) PromoteDue(ctx context.Context, now time.Time) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var promoted []domain.Order
	for i := range s.orders {
		o := &s.orders[i]
		if o.Status != domain.OrderStatusPending || o.ScheduledSendTime == nil || o.ScheduledSendTime.After(now) {
			continue
		}
		sentAt := now
		o.Status = domain.OrderStatusSent
		o.SentAt = &sentAt
		promoted = append(promoted, *o)
	}
	return promoted, nil
}

func (s *orderStore) TransitionStatus(ctx context.Context, id string, to domain.OrderStatus, prepMinutes *int) (*domain.Order, *domain.Order, error) {
	return nil, nil, domain.ErrNotFound
}

type fakeDeliveryRepo struct {
	createFn       func(ctx context.Context, d *domain.Delivery) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Delivery, error)
	assignDriverFn func(ctx context.Context, id string, driverID string) (*domain.Delivery, *domain.Delivery, error)
}

func (f *fakeDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	if f.createFn != nil {
		return f.createFn(ctx, d)
	}
	return nil
}

func (f *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDeliveryRepo) AssignDriver(ctx context.Context, id string, driverID string) (*domain.Delivery, *domain.Delivery, error) {
	if f.assignDriverFn != nil {
		return f.assignDriverFn(ctx, id, driverID)
	}
	return nil, nil, domain.ErrNotFound
}

type fakeMirrorRepo struct {
	mu       sync.Mutex
	created  []domain.MirroredOrder
	createFn func(ctx context.Context, m *domain.MirroredOrder) error
}

func (f *fakeMirrorRepo) Create(ctx context.Context, m *domain.MirroredOrder) error {
	f.mu.Lock()
	f.created = append(f.created, *m)
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(ctx, m)
	}
	return nil
}

func (f *fakeMirrorRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.MirroredOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.created {
		if f.created[i].OrderID == orderID {
			m := f.created[i]
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	created  []domain.NotificationAttempt
	createFn func(ctx context.Context, attempt *domain.NotificationAttempt) error
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *domain.NotificationAttempt) error {
	f.mu.Lock()
	f.created = append(f.created, *attempt)
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(ctx, attempt)
	}
	return nil
}

func (f *fakeAttemptRepo) ListByTarget(ctx context.Context, targetActorID string) ([]domain.NotificationAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.NotificationAttempt
	for i := range f.created {
		if f.created[i].TargetActorID == targetActorID {
			out = append(out, f.created[i])
		}
	}
	return out, nil
}

type publishedEvent struct {
	queueName string
	event     queue.ChangeEvent
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	publishFn func(ctx context.Context, queueName string, msg queue.ChangeEvent) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.ChangeEvent) error {
	f.mu.Lock()
	f.published = append(f.published, publishedEvent{queueName: queueName, event: msg})
	f.mu.Unlock()
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) events() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.published))
	copy(out, f.published)
	return out
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeTokenResolver struct {
	resolveTokenFn func(ctx context.Context, actorID string) (string, error)
}

func (f *fakeTokenResolver) ResolveToken(ctx context.Context, actorID string) (string, error) {
	if f.resolveTokenFn != nil {
		return f.resolveTokenFn(ctx, actorID)
	}
	return "device-token", nil
}

type fakeProvider struct {
	mu     sync.Mutex
	sent   []provider.PushMessage
	sendFn func(ctx context.Context, msg provider.PushMessage) (*provider.ProviderResponse, error)
}

func (f *fakeProvider) Send(ctx context.Context, msg provider.PushMessage) (*provider.ProviderResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.ProviderResponse{StatusCode: 200, MessageID: "gw-msg-1"}, nil
}

func (f *fakeProvider) messages() []provider.PushMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.PushMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestDispatcher(tokens *fakeTokenResolver, pushProvider *fakeProvider, attempts *fakeAttemptRepo) *notify.Dispatcher {
	if tokens == nil {
		tokens = &fakeTokenResolver{}
	}
	if pushProvider == nil {
		pushProvider = &fakeProvider{}
	}
	if attempts == nil {
		attempts = &fakeAttemptRepo{}
	}
	return notify.NewDispatcher(tokens, pushProvider, attempts, nil, nil, nil)
}
