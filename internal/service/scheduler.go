package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultPromotionInterval = time.Minute

// Scheduler drives periodic promotion passes.
type Scheduler struct {
	promotions *PromotionService
	logger     *zap.Logger
	interval   time.Duration
}

func NewScheduler(promotions *PromotionService, interval time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if promotions == nil {
		return nil, fmt.Errorf("promotion service is required")
	}
	if interval <= 0 {
		interval = defaultPromotionInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		promotions: promotions,
		logger:     logger,
		interval:   interval,
	}, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.promotions.ProcessDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("initial promotion pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.promotions.ProcessDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("promotion pass failed", zap.Error(err))
			}
		}
	}
}
