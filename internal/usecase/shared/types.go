package shared

import (
	"time"

	"salon-booking/internal/domain/schedule"

	"github.com/google/uuid"
)

type ShopSnapshot struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	// Timezone is an IANA zone name; empty means the configured default.
	Timezone string
}

type ServiceSnapshot struct {
	ID              uuid.UUID
	ShopID          uuid.UUID
	Name            string
	DurationMinutes int
	Price           float64
}

type StaffSnapshot struct {
	UserID uuid.UUID
	Role   string
}

// OverlapQuery asks for an active booking intersecting [StartAt, EndAt).
// A nil BarberID targets unassigned bookings of the shop.
type OverlapQuery struct {
	TenantID  uuid.UUID
	ShopID    uuid.UUID
	Date      schedule.Date
	BarberID  *uuid.UUID
	StartAt   time.Time
	EndAt     time.Time
	ExcludeID *uuid.UUID
}

const (
	IdempotencyProcessing = "processing"
	IdempotencyCompleted  = "completed"
)

type IdempotencyRecord struct {
	TenantID        uuid.UUID
	UserID          uuid.UUID
	Key             uuid.UUID
	Endpoint        string
	RequestHash     string
	Status          string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
	CreatedAt       time.Time
}
