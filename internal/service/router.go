package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/notify"
	"github.com/plateful/order-dispatch/internal/observability"
	"github.com/plateful/order-dispatch/internal/queue"
)

const minRouterConcurrency = 1

// ChangeRouter consumes document change events and turns the before/after
// diff into notifications. It re-derives what changed from the snapshots;
// publishers only report that a write happened.
type ChangeRouter struct {
	consumer    queue.Consumer
	dispatcher  *notify.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
}

func NewChangeRouter(
	consumer queue.Consumer,
	dispatcher *notify.Dispatcher,
	concurrency int,
	logger *zap.Logger,
) (*ChangeRouter, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if concurrency < minRouterConcurrency {
		concurrency = minRouterConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChangeRouter{
		consumer:    consumer,
		dispatcher:  dispatcher,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (r *ChangeRouter) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Start consumes the change queues until context cancellation.
func (r *ChangeRouter) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no change queues configured")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < r.concurrency; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			r.logger.Info("change router worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := r.consumer.Consume(groupCtx, queueName, func(ctx context.Context, msg queue.ChangeEvent) error {
				r.metrics.IncRouterInFlight(queueName)
				defer r.metrics.DecRouterInFlight(queueName)
				return r.HandleEvent(ctx, msg)
			})
			if err != nil {
				r.logger.Error("change router worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			r.logger.Info("change router worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

// HandleEvent routes one change event. Malformed snapshots and suppressed
// diffs ack without side effects; only infrastructure errors propagate.
func (r *ChangeRouter) HandleEvent(ctx context.Context, event queue.ChangeEvent) error {
	switch event.Collection {
	case queue.CollectionOrders:
		return r.handleOrderEvent(ctx, event)
	case queue.CollectionDeliveries:
		return r.handleDeliveryEvent(ctx, event)
	default:
		r.logger.Warn("change event for unmonitored collection, dropping",
			zap.String("collection", event.Collection.String()),
			zap.String("documentId", event.DocumentID),
		)
		r.metrics.IncRouterEvent(event.Collection.String(), "malformed")
		return nil
	}
}

func (r *ChangeRouter) handleOrderEvent(ctx context.Context, event queue.ChangeEvent) error {
	before, after, err := event.OrderSnapshots()
	if err != nil {
		r.logger.Warn("malformed order change event, dropping",
			zap.String("documentId", event.DocumentID),
			zap.Error(err),
		)
		r.metrics.IncRouterEvent(event.Collection.String(), "malformed")
		return nil
	}

	if strings.EqualFold(before.Status.String(), after.Status.String()) {
		r.metrics.IncRouterEvent(event.Collection.String(), "noop")
		return nil
	}

	// The pending->sent flip notifies the vendor from the promotion path,
	// not the customer from here.
	payload := notify.ComposeOrderStatusChange(&before, &after)
	if payload == nil {
		r.logger.Debug("order status change suppressed",
			zap.String("orderId", after.ID),
			zap.String("from", before.Status.String()),
			zap.String("to", after.Status.String()),
		)
		r.metrics.IncRouterEvent(event.Collection.String(), "suppressed")
		return nil
	}

	target := domain.ActorRef{ID: after.CustomerID, Kind: domain.ActorKindCustomer}
	r.dispatcher.Dispatch(ctx, target, payload)
	r.metrics.IncRouterEvent(event.Collection.String(), "dispatched")
	return nil
}

func (r *ChangeRouter) handleDeliveryEvent(ctx context.Context, event queue.ChangeEvent) error {
	before, after, err := event.DeliverySnapshots()
	if err != nil {
		r.logger.Warn("malformed delivery change event, dropping",
			zap.String("documentId", event.DocumentID),
			zap.Error(err),
		)
		r.metrics.IncRouterEvent(event.Collection.String(), "malformed")
		return nil
	}

	payload := notify.ComposeDriverAssignment(&before, &after)
	if payload == nil {
		r.metrics.IncRouterEvent(event.Collection.String(), "suppressed")
		return nil
	}

	target := domain.ActorRef{ID: after.Driver(), Kind: domain.ActorKindDriver}
	r.dispatcher.Dispatch(ctx, target, payload)
	r.metrics.IncRouterEvent(event.Collection.String(), "dispatched")
	return nil
}
