package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/provider"
)

type fakeTokenResolver struct {
	resolveTokenFn func(ctx context.Context, actorID string) (string, error)
}

func (f *fakeTokenResolver) ResolveToken(ctx context.Context, actorID string) (string, error) {
	return f.resolveTokenFn(ctx, actorID)
}

type fakeAttemptRecorder struct {
	created  []domain.NotificationAttempt
	createFn func(ctx context.Context, attempt *domain.NotificationAttempt) error
}

func (f *fakeAttemptRecorder) Create(ctx context.Context, attempt *domain.NotificationAttempt) error {
	f.created = append(f.created, *attempt)
	if f.createFn != nil {
		return f.createFn(ctx, attempt)
	}
	return nil
}

type fakeProvider struct {
	sent   []provider.PushMessage
	sendFn func(ctx context.Context, msg provider.PushMessage) (*provider.ProviderResponse, error)
}

func (f *fakeProvider) Send(ctx context.Context, msg provider.PushMessage) (*provider.ProviderResponse, error) {
	f.sent = append(f.sent, msg)
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.ProviderResponse{StatusCode: 200}, nil
}

type fakeLimiter struct {
	waitFn func(ctx context.Context, key string) error
	keys   []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (f *fakeLimiter) Wait(ctx context.Context, key string) error {
	f.keys = append(f.keys, key)
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

func TestDispatcherDelivered(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenResolver{
		resolveTokenFn: func(ctx context.Context, actorID string) (string, error) {
			if actorID != "vendor-1" {
				t.Fatalf("ResolveToken actorID = %q, want %q", actorID, "vendor-1")
			}
			return "device-token-abc", nil
		},
	}
	pushProvider := &fakeProvider{
		sendFn: func(ctx context.Context, msg provider.PushMessage) (*provider.ProviderResponse, error) {
			return &provider.ProviderResponse{StatusCode: 200, MessageID: "gw-msg-9"}, nil
		},
	}
	attempts := &fakeAttemptRecorder{}
	limiter := &fakeLimiter{}

	d := NewDispatcher(tokens, pushProvider, attempts, limiter, nil, nil)

	attempt := d.Dispatch(context.Background(), domain.ActorRef{ID: "vendor-1", Kind: domain.ActorKindVendor}, &Payload{
		Title: "New Order Received",
		Body:  "You have a new order: ord-1.",
	})

	if attempt.Outcome != domain.AttemptOutcomeDelivered {
		t.Fatalf("Outcome = %v, want %v", attempt.Outcome, domain.AttemptOutcomeDelivered)
	}
	if attempt.ProviderMessageID == nil || *attempt.ProviderMessageID != "gw-msg-9" {
		t.Fatalf("ProviderMessageID = %v, want gw-msg-9", attempt.ProviderMessageID)
	}
	if len(pushProvider.sent) != 1 {
		t.Fatalf("provider sends = %d, want 1", len(pushProvider.sent))
	}
	if pushProvider.sent[0].Token != "device-token-abc" {
		t.Fatalf("sent token = %q, want resolved token", pushProvider.sent[0].Token)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "notify:vendor" {
		t.Fatalf("limiter keys = %v, want [notify:vendor]", limiter.keys)
	}
	if len(attempts.created) != 1 {
		t.Fatalf("attempts recorded = %d, want 1", len(attempts.created))
	}
}

func TestDispatcherNoToken(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenResolver{
		resolveTokenFn: func(ctx context.Context, actorID string) (string, error) {
			return "", nil
		},
	}
	pushProvider := &fakeProvider{}
	attempts := &fakeAttemptRecorder{}

	d := NewDispatcher(tokens, pushProvider, attempts, nil, nil, nil)

	attempt := d.Dispatch(context.Background(), domain.ActorRef{ID: "cust-1", Kind: domain.ActorKindCustomer}, &Payload{
		Title: "Order Update",
		Body:  "Your order is on the way!",
	})

	if attempt.Outcome != domain.AttemptOutcomeNoToken {
		t.Fatalf("Outcome = %v, want %v", attempt.Outcome, domain.AttemptOutcomeNoToken)
	}
	if len(pushProvider.sent) != 0 {
		t.Fatalf("provider sends = %d, want 0 for missing token", len(pushProvider.sent))
	}
	if len(attempts.created) != 1 {
		t.Fatalf("attempts recorded = %d, want 1", len(attempts.created))
	}
}

func TestDispatcherTokenLookupError(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenResolver{
		resolveTokenFn: func(ctx context.Context, actorID string) (string, error) {
			return "", errors.New("store unavailable")
		},
	}
	pushProvider := &fakeProvider{}
	attempts := &fakeAttemptRecorder{}

	d := NewDispatcher(tokens, pushProvider, attempts, nil, nil, nil)

	attempt := d.Dispatch(context.Background(), domain.ActorRef{ID: "drv-1", Kind: domain.ActorKindDriver}, &Payload{
		Title: "New Delivery Assignment",
		Body:  "You have been assigned a new delivery.",
	})

	if attempt.Outcome != domain.AttemptOutcomeSendFailed {
		t.Fatalf("Outcome = %v, want %v", attempt.Outcome, domain.AttemptOutcomeSendFailed)
	}
	if attempt.Reason == nil {
		t.Fatal("Reason = nil, want lookup failure reason")
	}
	if len(pushProvider.sent) != 0 {
		t.Fatalf("provider sends = %d, want 0 on lookup failure", len(pushProvider.sent))
	}
}

func TestDispatcherSendFailed(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenResolver{
		resolveTokenFn: func(ctx context.Context, actorID string) (string, error) {
			return "device-token", nil
		},
	}
	pushProvider := &fakeProvider{
		sendFn: func(ctx context.Context, msg provider.PushMessage) (*provider.ProviderResponse, error) {
			return nil, &provider.ProviderError{StatusCode: 503, Message: "upstream unavailable", Transient: true}
		},
	}
	attempts := &fakeAttemptRecorder{}

	d := NewDispatcher(tokens, pushProvider, attempts, nil, nil, nil)

	attempt := d.Dispatch(context.Background(), domain.ActorRef{ID: "vendor-1", Kind: domain.ActorKindVendor}, &Payload{
		Title: "New Order Received",
		Body:  "You have a new order: ord-9.",
	})

	if attempt.Outcome != domain.AttemptOutcomeSendFailed {
		t.Fatalf("Outcome = %v, want %v", attempt.Outcome, domain.AttemptOutcomeSendFailed)
	}
	// One terminal attempt: no retries on transient errors either.
	if len(pushProvider.sent) != 1 {
		t.Fatalf("provider sends = %d, want exactly 1", len(pushProvider.sent))
	}
}

func TestDispatcherRateLimiterError(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenResolver{
		resolveTokenFn: func(ctx context.Context, actorID string) (string, error) {
			return "device-token", nil
		},
	}
	pushProvider := &fakeProvider{}
	limiter := &fakeLimiter{
		waitFn: func(ctx context.Context, key string) error {
			return context.DeadlineExceeded
		},
	}

	d := NewDispatcher(tokens, pushProvider, &fakeAttemptRecorder{}, limiter, nil, nil)

	attempt := d.Dispatch(context.Background(), domain.ActorRef{ID: "cust-1", Kind: domain.ActorKindCustomer}, &Payload{
		Title: "Order Update",
		Body:  "Your order will be ready in 10 minutes.",
	})

	if attempt.Outcome != domain.AttemptOutcomeSendFailed {
		t.Fatalf("Outcome = %v, want %v", attempt.Outcome, domain.AttemptOutcomeSendFailed)
	}
	if len(pushProvider.sent) != 0 {
		t.Fatalf("provider sends = %d, want 0 when limiter rejects", len(pushProvider.sent))
	}
}

func TestDispatcherAttemptPersistFailureDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()

	tokens := &fakeTokenResolver{
		resolveTokenFn: func(ctx context.Context, actorID string) (string, error) {
			return "device-token", nil
		},
	}
	attempts := &fakeAttemptRecorder{
		createFn: func(ctx context.Context, attempt *domain.NotificationAttempt) error {
			return errors.New("insert failed")
		},
	}

	d := NewDispatcher(tokens, &fakeProvider{}, attempts, nil, nil, nil)

	attempt := d.Dispatch(context.Background(), domain.ActorRef{ID: "vendor-1", Kind: domain.ActorKindVendor}, &Payload{
		Title: "New Order Received",
		Body:  "You have a new order: ord-2.",
	})

	if attempt.Outcome != domain.AttemptOutcomeDelivered {
		t.Fatalf("Outcome = %v, want %v despite persist failure", attempt.Outcome, domain.AttemptOutcomeDelivered)
	}
}
