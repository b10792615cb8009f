package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plateful/order-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// PromoteDue atomically marks every pending order whose scheduled send
	// time has passed as sent, and returns the promoted orders in their
	// post-promotion state. The status guard in the predicate is what makes
	// re-runs idempotent.
	PromoteDue(ctx context.Context, now time.Time) ([]domain.Order, error)
	// TransitionStatus moves an order to the given status under a row lock,
	// enforcing the monotonic status path. A non-nil prepMinutes is stored
	// with the transition. It returns the before and after snapshots for
	// change-event publication.
	TransitionStatus(ctx context.Context, id string, to domain.OrderStatus, prepMinutes *int) (*domain.Order, *domain.Order, error)
}

type GormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) *GormOrderRepo {
	return &GormOrderRepo{db: db}
}

func (r *GormOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	model := orderModelFromDomain(o)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if o != nil {
		*o = *orderModelToDomain(model)
	}
	return nil
}

func (r *GormOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return orderModelToDomain(&model), nil
}

func (r *GormOrderRepo) PromoteDue(ctx context.Context, now time.Time) ([]domain.Order, error) {
	var models []OrderModel

	// Single guarded UPDATE ... RETURNING: eligibility is evaluated against
	// the store snapshot at statement time, and a concurrent invocation
	// cannot promote the same row twice because its predicate would no
	// longer match.
	result := r.db.WithContext(ctx).
		Model(&models).
		Clauses(clause.Returning{}).
		Where("status = ? AND scheduled_send_time IS NOT NULL AND scheduled_send_time <= ?",
			domain.OrderStatusPending.String(), now).
		Updates(map[string]any{
			"status":  domain.OrderStatusSent.String(),
			"sent_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, *orderModelToDomain(&models[i]))
	}
	return orders, nil
}

func (r *GormOrderRepo) TransitionStatus(
	ctx context.Context,
	id string,
	to domain.OrderStatus,
	prepMinutes *int,
) (*domain.Order, *domain.Order, error) {
	var before, after *domain.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model OrderModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		before = orderModelToDomain(&model)
		if !before.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: cannot transition order %s from %q to %q",
				domain.ErrConflict, id, before.Status, to)
		}

		updates := map[string]any{"status": to.String()}
		if prepMinutes != nil {
			updates["preparation_time_minutes"] = *prepMinutes
		}
		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}

		model.Status = to.String()
		if prepMinutes != nil {
			model.PreparationTimeMinutes = prepMinutes
		}
		after = orderModelToDomain(&model)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return before, after, nil
}
