package repository

import (
	"context"
	"errors"

	"github.com/plateful/order-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MirroredOrderRepository interface {
	// Create writes the vendor-facing snapshot once. Re-creating the mirror
	// for an order that already has one is a silent no-op, so a crashed
	// promotion run can be finished by the next one without duplicates.
	Create(ctx context.Context, m *domain.MirroredOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.MirroredOrder, error)
}

type GormMirroredOrderRepo struct {
	db *gorm.DB
}

func NewGormMirroredOrderRepo(db *gorm.DB) *GormMirroredOrderRepo {
	return &GormMirroredOrderRepo{db: db}
}

func (r *GormMirroredOrderRepo) Create(ctx context.Context, m *domain.MirroredOrder) error {
	model := mirrorModelFromDomain(m)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if m != nil {
		*m = *mirrorModelToDomain(model)
	}
	return nil
}

func (r *GormMirroredOrderRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.MirroredOrder, error) {
	var model MirroredOrderModel
	err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return mirrorModelToDomain(&model), nil
}
