package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FactKind string

const (
	FactBookingCreated    FactKind = "booking.created"
	FactStatusChanged     FactKind = "booking.status_changed"
	FactOperationObserved FactKind = "booking.operation_observed"
)

// Fact is an observation emitted after a booking operation.
type Fact interface {
	Kind() FactKind
}

// FactPublisher must not block the caller.
type FactPublisher interface {
	Publish(ctx context.Context, fact Fact)
}

type BookingCreated struct {
	BookingID  uuid.UUID     `json:"bookingId"`
	TenantID   uuid.UUID     `json:"tenantId"`
	ShopID     uuid.UUID     `json:"shopId"`
	CustomerID uuid.UUID     `json:"customerId"`
	BarberID   *uuid.UUID    `json:"barberId,omitempty"`
	StartAt    time.Time     `json:"startAt"`
	EndAt      time.Time     `json:"endAt"`
	TotalPrice float64       `json:"totalPrice"`
	Duration   time.Duration `json:"durationNs"`
	Success    bool          `json:"success"`
}

func (BookingCreated) Kind() FactKind { return FactBookingCreated }

type StatusChanged struct {
	BookingID  uuid.UUID `json:"bookingId"`
	TenantID   uuid.UUID `json:"tenantId"`
	ShopID     uuid.UUID `json:"shopId"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorClass string    `json:"actorClass"`
	ActorID    uuid.UUID `json:"actorId"`
	At         time.Time `json:"at"`
}

func (StatusChanged) Kind() FactKind { return FactStatusChanged }

const (
	OperationCreate = "create"
	OperationUpdate = "update"
)

type OperationObserved struct {
	Operation string        `json:"operation"`
	Code      string        `json:"code"`
	Duration  time.Duration `json:"durationNs"`
}

func (OperationObserved) Kind() FactKind { return FactOperationObserved }
