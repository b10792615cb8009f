package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plateful/order-dispatch/internal/domain"
	"github.com/plateful/order-dispatch/internal/notify"
	"github.com/plateful/order-dispatch/internal/observability"
	"github.com/plateful/order-dispatch/internal/queue"
	"github.com/plateful/order-dispatch/internal/repository"
)

const minPromotionConcurrency = 1

// PromotionService promotes due pending orders to sent and fans out the
// per-order side effects (vendor mirror, change event, vendor notification).
type PromotionService struct {
	orders      repository.OrderRepository
	mirrors     repository.MirroredOrderRepository
	publisher   queue.Publisher
	dispatcher  *notify.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewPromotionService(
	orders repository.OrderRepository,
	mirrors repository.MirroredOrderRepository,
	publisher queue.Publisher,
	dispatcher *notify.Dispatcher,
	concurrency int,
	logger *zap.Logger,
) (*PromotionService, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if concurrency < minPromotionConcurrency {
		concurrency = minPromotionConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PromotionService{
		orders:      orders,
		mirrors:     mirrors,
		publisher:   publisher,
		dispatcher:  dispatcher,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *PromotionService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ProcessDue runs one promotion pass. The status flip is a single atomic
// statement, so concurrent passes cannot promote the same order twice; the
// returned count covers orders promoted by this pass only.
func (s *PromotionService) ProcessDue(ctx context.Context) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := s.now()
	now := start.UTC()

	promoted, err := s.orders.PromoteDue(ctx, now)
	if err != nil {
		s.metrics.IncPromotionRun("error")
		return 0, fmt.Errorf("failed to promote due orders: %w", err)
	}

	// finalizeOrder absorbs its own failures so one order cannot abort the
	// pass; the group only bounds fan-out and never returns an error.
	var failed atomic.Int32
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range promoted {
		order := promoted[i]
		g.Go(func() error {
			if !s.finalizeOrder(groupCtx, order) {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.AddOrdersPromoted(len(promoted))
	s.metrics.IncPromotionRun("success")
	s.metrics.ObservePromotionDuration(s.now().Sub(start))

	if len(promoted) > 0 {
		s.logger.Info("promoted due orders",
			zap.Int("count", len(promoted)),
			zap.Int32("sideEffectFailures", failed.Load()),
			zap.Time("asOf", now),
		)
	}

	return len(promoted), nil
}

// finalizeOrder runs the post-promotion side effects for one order and
// reports whether all of them succeeded. Failures are logged, never returned.
func (s *PromotionService) finalizeOrder(ctx context.Context, order domain.Order) bool {
	ok := true

	if s.mirrors != nil {
		mirror := &domain.MirroredOrder{
			ID:       uuid.NewString(),
			OrderID:  order.ID,
			VendorID: order.VendorID,
			Status:   order.Status,
			Contents: order.Contents,
		}
		if order.SentAt != nil {
			mirror.SentAt = *order.SentAt
		}
		if err := s.mirrors.Create(ctx, mirror); err != nil {
			ok = false
			s.logger.Error("failed to mirror promoted order",
				zap.String("orderId", order.ID),
				zap.Error(err),
			)
		}
	}

	if s.publisher != nil {
		before := order
		before.Status = domain.OrderStatusPending
		before.SentAt = nil

		event, err := queue.NewOrderChange(before, order, s.now())
		if err != nil {
			ok = false
			s.logger.Error("failed to build order change event",
				zap.String("orderId", order.ID),
				zap.Error(err),
			)
		} else if err := s.publisher.Publish(ctx, queue.QueueName(queue.CollectionOrders), event); err != nil {
			ok = false
			s.logger.Error("failed to publish order change event",
				zap.String("orderId", order.ID),
				zap.Error(err),
			)
		}
	}

	if s.dispatcher == nil {
		return ok
	}

	payload := notify.ComposeOrderCreated(&order)
	target := domain.ActorRef{ID: order.VendorID, Kind: domain.ActorKindVendor}
	attempt := s.dispatcher.Dispatch(ctx, target, payload)
	if attempt.Outcome != domain.AttemptOutcomeDelivered {
		ok = false
		s.logger.Warn("vendor notification not delivered",
			zap.String("orderId", order.ID),
			zap.String("vendorId", order.VendorID),
			zap.String("outcome", attempt.Outcome.String()),
		)
	}

	return ok
}
