package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/observability"
	"github.com/plateful/order-dispatch/internal/provider"
	"github.com/plateful/order-dispatch/internal/ratelimit"
)

// TokenResolver looks up the push device token for an actor. An empty
// token with a nil error means the actor has no registered device.
type TokenResolver interface {
	ResolveToken(ctx context.Context, actorID string) (string, error)
}

// AttemptRecorder persists the outcome of one dispatch attempt.
type AttemptRecorder interface {
	Create(ctx context.Context, attempt *domain.NotificationAttempt) error
}

// Dispatcher resolves a target's device token and pushes one composed
// payload through the provider. It never returns an error: every path
// terminates in a recorded attempt outcome.
type Dispatcher struct {
	tokens   TokenResolver
	provider provider.Provider
	attempts AttemptRecorder
	limiter  ratelimit.Limiter
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewDispatcher(
	tokens TokenResolver,
	pushProvider provider.Provider,
	attempts AttemptRecorder,
	limiter ratelimit.Limiter,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		tokens:   tokens,
		provider: pushProvider,
		attempts: attempts,
		limiter:  limiter,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Dispatch performs one send attempt for target. Failures are terminal;
// there is no retry path for notifications.
func (d *Dispatcher) Dispatch(ctx context.Context, target domain.ActorRef, payload *Payload) domain.NotificationAttempt {
	logger := observability.WithContextLogger(d.logger, ctx)

	attempt := domain.NotificationAttempt{
		ID:            uuid.NewString(),
		TargetActorID: target.ID,
		TargetKind:    target.Kind,
		CreatedAt:     d.now().UTC(),
	}
	if payload != nil {
		attempt.Title = payload.Title
		attempt.Body = payload.Body
	}

	if payload == nil || target.ID == "" {
		d.finalize(ctx, &attempt, domain.AttemptOutcomeSendFailed, "invalid dispatch input")
		return attempt
	}

	token, err := d.tokens.ResolveToken(ctx, target.ID)
	if err != nil {
		logger.Error("token lookup failed",
			zap.String("actor_id", target.ID),
			zap.String("kind", target.Kind.String()),
			zap.Error(err),
		)
		d.metrics.IncNotificationFailure(target.Kind.String(), "token_lookup")
		d.finalize(ctx, &attempt, domain.AttemptOutcomeSendFailed, "token lookup failed: "+err.Error())
		return attempt
	}
	if token == "" {
		logger.Info("no device token registered, skipping send",
			zap.String("actor_id", target.ID),
			zap.String("kind", target.Kind.String()),
		)
		d.finalize(ctx, &attempt, domain.AttemptOutcomeNoToken, "")
		return attempt
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, "notify:"+target.Kind.String()); err != nil {
			logger.Warn("rate limiter rejected send",
				zap.String("actor_id", target.ID),
				zap.String("kind", target.Kind.String()),
				zap.Error(err),
			)
			d.metrics.IncNotificationFailure(target.Kind.String(), "rate_limited")
			d.finalize(ctx, &attempt, domain.AttemptOutcomeSendFailed, "rate limited: "+err.Error())
			return attempt
		}
	}

	start := d.now()
	resp, err := d.provider.Send(ctx, provider.PushMessage{
		Token: token,
		Title: payload.Title,
		Body:  payload.Body,
		Data:  payload.Data,
	})
	d.metrics.ObserveSendDuration(target.Kind.String(), d.now().Sub(start))

	if err != nil {
		logger.Error("push send failed",
			zap.String("actor_id", target.ID),
			zap.String("kind", target.Kind.String()),
			zap.Error(err),
		)
		d.metrics.IncNotificationFailure(target.Kind.String(), provider.FailureReason(err))
		d.finalize(ctx, &attempt, domain.AttemptOutcomeSendFailed, err.Error())
		return attempt
	}

	if resp != nil && resp.MessageID != "" {
		messageID := resp.MessageID
		attempt.ProviderMessageID = &messageID
	}
	d.finalize(ctx, &attempt, domain.AttemptOutcomeDelivered, "")
	return attempt
}

func (d *Dispatcher) finalize(ctx context.Context, attempt *domain.NotificationAttempt, outcome domain.AttemptOutcome, reason string) {
	attempt.Outcome = outcome
	if reason != "" {
		attempt.Reason = &reason
	}

	d.metrics.IncNotificationOutcome(attempt.TargetKind.String(), outcome.String())

	if d.attempts == nil {
		return
	}
	// Attempt records are best effort: a failed insert must not fail
	// the dispatch itself.
	if err := d.attempts.Create(ctx, attempt); err != nil {
		d.logger.Error("failed to persist notification attempt",
			zap.String("attempt_id", attempt.ID),
			zap.String("actor_id", attempt.TargetActorID),
			zap.Error(err),
		)
	}
}
