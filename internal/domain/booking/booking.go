package booking

import (
	"errors"
	"time"
	"unicode/utf8"

	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/domain/schedule"

	"github.com/google/uuid"
)

const MaxNotesLength = 500

var (
	ErrNoServices       = errors.New("booking needs at least one service")
	ErrDuplicateService = errors.New("service listed more than once")
	ErrNotesTooLong     = errors.New("notes exceed maximum length")
	ErrNegativePrice    = errors.New("total price cannot be negative")
)

type Booking struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	shopID         uuid.UUID
	customerID     uuid.UUID
	barberID       *uuid.UUID
	slot           schedule.Slot
	serviceIDs     []uuid.UUID
	status         Status
	totalPrice     float64
	notes          *string
	pricingContext pricing.Context
	createdAt      time.Time
	updatedAt      time.Time
}

type NewParams struct {
	TenantID       uuid.UUID
	ShopID         uuid.UUID
	CustomerID     uuid.UUID
	BarberID       *uuid.UUID
	Slot           schedule.Slot
	ServiceIDs     []uuid.UUID
	TotalPrice     float64
	Notes          *string
	PricingContext pricing.Context
}

// New creates a pending booking.
func New(p NewParams, now time.Time) (*Booking, error) {
	if err := ValidateServiceIDs(p.ServiceIDs); err != nil {
		return nil, err
	}
	if err := validateNotes(p.Notes); err != nil {
		return nil, err
	}
	if p.TotalPrice < 0 {
		return nil, ErrNegativePrice
	}

	return &Booking{
		id:             uuid.New(),
		tenantID:       p.TenantID,
		shopID:         p.ShopID,
		customerID:     p.CustomerID,
		barberID:       p.BarberID,
		slot:           p.Slot,
		serviceIDs:     append([]uuid.UUID(nil), p.ServiceIDs...),
		status:         StatusPending,
		totalPrice:     pricing.Round2(p.TotalPrice),
		notes:          p.Notes,
		pricingContext: p.PricingContext,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

type ReconstructParams struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ShopID         uuid.UUID
	CustomerID     uuid.UUID
	BarberID       *uuid.UUID
	Slot           schedule.Slot
	ServiceIDs     []uuid.UUID
	Status         Status
	TotalPrice     float64
	Notes          *string
	PricingContext pricing.Context
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reconstruct rebuilds a booking from storage without validation.
func Reconstruct(p ReconstructParams) *Booking {
	return &Booking{
		id:             p.ID,
		tenantID:       p.TenantID,
		shopID:         p.ShopID,
		customerID:     p.CustomerID,
		barberID:       p.BarberID,
		slot:           p.Slot,
		serviceIDs:     p.ServiceIDs,
		status:         p.Status,
		totalPrice:     p.TotalPrice,
		notes:          p.Notes,
		pricingContext: p.PricingContext,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}
}

func (b *Booking) ID() uuid.UUID                   { return b.id }
func (b *Booking) TenantID() uuid.UUID             { return b.tenantID }
func (b *Booking) ShopID() uuid.UUID               { return b.shopID }
func (b *Booking) CustomerID() uuid.UUID           { return b.customerID }
func (b *Booking) BarberID() *uuid.UUID            { return b.barberID }
func (b *Booking) Slot() schedule.Slot             { return b.slot }
func (b *Booking) ServiceIDs() []uuid.UUID         { return append([]uuid.UUID(nil), b.serviceIDs...) }
func (b *Booking) Status() Status                  { return b.status }
func (b *Booking) TotalPrice() float64             { return b.totalPrice }
func (b *Booking) Notes() *string                  { return b.notes }
func (b *Booking) PricingContext() pricing.Context { return b.pricingContext }
func (b *Booking) CreatedAt() time.Time            { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time            { return b.updatedAt }

func (b *Booking) HasBarber() bool {
	return b.barberID != nil
}

func (b *Booking) Reschedule(slot schedule.Slot, serviceIDs []uuid.UUID) error {
	if err := ValidateServiceIDs(serviceIDs); err != nil {
		return err
	}
	b.slot = slot
	b.serviceIDs = append([]uuid.UUID(nil), serviceIDs...)
	return nil
}

func (b *Booking) AssignBarber(barberID *uuid.UUID) {
	b.barberID = barberID
}

func (b *Booking) ChangeStatus(status Status) {
	b.status = status
}

func (b *Booking) SetNotes(notes *string) error {
	if err := validateNotes(notes); err != nil {
		return err
	}
	b.notes = notes
	return nil
}

func (b *Booking) Reprice(total float64) error {
	if total < 0 {
		return ErrNegativePrice
	}
	b.totalPrice = pricing.Round2(total)
	return nil
}

func (b *Booking) Touch(now time.Time) {
	b.updatedAt = now
}

func ValidateServiceIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrNoServices
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrDuplicateService
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateNotes(notes *string) error {
	if notes != nil && utf8.RuneCountInString(*notes) > MaxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}
