package repository

import (
	"context"
	"errors"

	"github.com/plateful/order-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id string) (*domain.Delivery, error)
	// AssignDriver sets the driver under a row lock and returns the before
	// and after snapshots. It stores the write even when the driver is
	// unchanged; suppressing no-op notifications is the router's job, not
	// the store's.
	AssignDriver(ctx context.Context, id string, driverID string) (*domain.Delivery, *domain.Delivery, error)
}

type GormDeliveryRepo struct {
	db *gorm.DB
}

func NewGormDeliveryRepo(db *gorm.DB) *GormDeliveryRepo {
	return &GormDeliveryRepo{db: db}
}

func (r *GormDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	model := deliveryModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if d != nil {
		*d = *deliveryModelToDomain(model)
	}
	return nil
}

func (r *GormDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	var model DeliveryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return deliveryModelToDomain(&model), nil
}

func (r *GormDeliveryRepo) AssignDriver(
	ctx context.Context,
	id string,
	driverID string,
) (*domain.Delivery, *domain.Delivery, error) {
	var before, after *domain.Delivery

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model DeliveryModel
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		before = deliveryModelToDomain(&model)

		if err := tx.Model(&model).Update("driver_id", driverID).Error; err != nil {
			return err
		}

		model.DriverID = &driverID
		after = deliveryModelToDomain(&model)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return before, after, nil
}
