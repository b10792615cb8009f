package domain

import "time"

// ActorKind identifies which side of an order an actor sits on. It only
// affects observability labels and rate-limit buckets; token resolution is
// by id alone.
type ActorKind string

const (
	ActorKindVendor   ActorKind = "vendor"
	ActorKindCustomer ActorKind = "customer"
	ActorKindDriver   ActorKind = "driver"
)

func (k ActorKind) String() string { return string(k) }

func (k ActorKind) IsValid() bool {
	switch k {
	case ActorKindVendor, ActorKindCustomer, ActorKindDriver:
		return true
	}
	return false
}

// Actor is any entity that may hold a push token. Actors are external state;
// the dispatcher only ever reads them.
type Actor struct {
	ID          string    `json:"id"`
	Kind        ActorKind `json:"kind"`
	DeviceToken *string   `json:"deviceToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ActorRef is a dispatch target.
type ActorRef struct {
	ID   string
	Kind ActorKind
}
