package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/plateful/order-dispatch/internal/domain"
	"gorm.io/gorm"
)

// ActorRepository is read-only: actors are external state and the dispatcher
// never creates or mutates them.
type ActorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
	// ResolveToken returns the actor's current push token, or "" when the
	// actor does not exist or has no registered token. A missing token is an
	// expected outcome, not an error.
	ResolveToken(ctx context.Context, actorID string) (string, error)
}

type GormActorRepo struct {
	db *gorm.DB
}

func NewGormActorRepo(db *gorm.DB) *GormActorRepo {
	return &GormActorRepo{db: db}
}

func (r *GormActorRepo) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	var model ActorModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	kind := domain.ActorKind(model.Kind)
	return &domain.Actor{
		ID:          model.ID,
		Kind:        kind,
		DeviceToken: model.DeviceToken,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

func (r *GormActorRepo) ResolveToken(ctx context.Context, actorID string) (string, error) {
	var model ActorModel
	err := r.db.WithContext(ctx).
		Select("device_token").
		First(&model, "id = ?", actorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	if model.DeviceToken == nil {
		return "", nil
	}
	return strings.TrimSpace(*model.DeviceToken), nil
}
