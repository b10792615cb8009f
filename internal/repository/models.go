package repository

import (
	"time"

	"github.com/plateful/order-dispatch/internal/domain"
	"gorm.io/datatypes"
)

// OrderModel is the persistence model for the orders table. Status is kept as
// raw text; canonicalization to the closed enum happens in the converter.
type OrderModel struct {
	ID                     string `gorm:"type:uuid;primaryKey"`
	Status                 string `gorm:"type:varchar(32);not null"`
	ScheduledSendTime      *time.Time
	SentAt                 *time.Time
	VendorID               string         `gorm:"type:varchar(64);not null"`
	CustomerID             string         `gorm:"type:varchar(64);not null"`
	PreparationTimeMinutes *int           `gorm:"type:int"`
	Contents               datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// DeliveryModel is the persistence model for deliveries.
type DeliveryModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	OrderID   string  `gorm:"type:uuid;not null"`
	DriverID  *string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DeliveryModel) TableName() string {
	return "deliveries"
}

// ActorModel is the persistence model for actors. The dispatcher never writes
// this table; it exists here so migrations and the token lookup share a shape.
type ActorModel struct {
	ID          string  `gorm:"type:varchar(64);primaryKey"`
	Kind        string  `gorm:"type:varchar(16);not null"`
	DeviceToken *string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ActorModel) TableName() string {
	return "actors"
}

// MirroredOrderModel is the persistence model for mirrored_orders. Rows are
// write-once; a uniqueness guard on order_id makes re-creation a no-op.
type MirroredOrderModel struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	OrderID   string         `gorm:"type:uuid;not null;uniqueIndex:idx_mirrored_orders_order_id"`
	VendorID  string         `gorm:"type:varchar(64);not null"`
	Status    string         `gorm:"type:varchar(32);not null"`
	SentAt    time.Time      `gorm:"not null"`
	Contents  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (MirroredOrderModel) TableName() string {
	return "mirrored_orders"
}

// NotificationAttemptModel is the persistence model for notification_attempts.
type NotificationAttemptModel struct {
	ID                string  `gorm:"type:uuid;primaryKey"`
	TargetActorID     string  `gorm:"type:varchar(64);not null"`
	TargetKind        string  `gorm:"type:varchar(16);not null"`
	Title             string  `gorm:"type:varchar(255);not null"`
	Body              string  `gorm:"type:text;not null"`
	Outcome           string  `gorm:"type:varchar(16);not null"`
	Reason            *string `gorm:"type:text"`
	ProviderMessageID *string `gorm:"type:varchar(255)"`
	CreatedAt         time.Time
}

func (NotificationAttemptModel) TableName() string {
	return "notification_attempts"
}

func orderModelFromDomain(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}

	return &OrderModel{
		ID:                     o.ID,
		Status:                 string(o.Status),
		ScheduledSendTime:      o.ScheduledSendTime,
		SentAt:                 o.SentAt,
		VendorID:               o.VendorID,
		CustomerID:             o.CustomerID,
		PreparationTimeMinutes: o.PreparationTimeMinutes,
		Contents:               datatypes.JSON(o.Contents),
		CreatedAt:              o.CreatedAt,
		UpdatedAt:              o.UpdatedAt,
	}
}

func orderModelToDomain(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}

	status, _ := domain.ParseOrderStatus(m.Status)

	return &domain.Order{
		ID:                     m.ID,
		Status:                 status,
		ScheduledSendTime:      m.ScheduledSendTime,
		SentAt:                 m.SentAt,
		VendorID:               m.VendorID,
		CustomerID:             m.CustomerID,
		PreparationTimeMinutes: m.PreparationTimeMinutes,
		Contents:               []byte(m.Contents),
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func deliveryModelFromDomain(d *domain.Delivery) *DeliveryModel {
	if d == nil {
		return nil
	}

	return &DeliveryModel{
		ID:        d.ID,
		OrderID:   d.OrderID,
		DriverID:  d.DriverID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func deliveryModelToDomain(m *DeliveryModel) *domain.Delivery {
	if m == nil {
		return nil
	}

	return &domain.Delivery{
		ID:        m.ID,
		OrderID:   m.OrderID,
		DriverID:  m.DriverID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func mirrorModelFromDomain(m *domain.MirroredOrder) *MirroredOrderModel {
	if m == nil {
		return nil
	}

	return &MirroredOrderModel{
		ID:        m.ID,
		OrderID:   m.OrderID,
		VendorID:  m.VendorID,
		Status:    string(m.Status),
		SentAt:    m.SentAt,
		Contents:  datatypes.JSON(m.Contents),
		CreatedAt: m.CreatedAt,
	}
}

func mirrorModelToDomain(m *MirroredOrderModel) *domain.MirroredOrder {
	if m == nil {
		return nil
	}

	status, _ := domain.ParseOrderStatus(m.Status)

	return &domain.MirroredOrder{
		ID:        m.ID,
		OrderID:   m.OrderID,
		VendorID:  m.VendorID,
		Status:    status,
		SentAt:    m.SentAt,
		Contents:  []byte(m.Contents),
		CreatedAt: m.CreatedAt,
	}
}

func attemptModelFromDomain(a *domain.NotificationAttempt) *NotificationAttemptModel {
	if a == nil {
		return nil
	}

	return &NotificationAttemptModel{
		ID:                a.ID,
		TargetActorID:     a.TargetActorID,
		TargetKind:        string(a.TargetKind),
		Title:             a.Title,
		Body:              a.Body,
		Outcome:           string(a.Outcome),
		Reason:            a.Reason,
		ProviderMessageID: a.ProviderMessageID,
		CreatedAt:         a.CreatedAt,
	}
}

func attemptModelToDomain(m *NotificationAttemptModel) *domain.NotificationAttempt {
	if m == nil {
		return nil
	}

	return &domain.NotificationAttempt{
		ID:                m.ID,
		TargetActorID:     m.TargetActorID,
		TargetKind:        domain.ActorKind(m.TargetKind),
		Title:             m.Title,
		Body:              m.Body,
		Outcome:           domain.AttemptOutcome(m.Outcome),
		Reason:            m.Reason,
		ProviderMessageID: m.ProviderMessageID,
		CreatedAt:         m.CreatedAt,
	}
}
