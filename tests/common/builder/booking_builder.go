//go:build unit || e2e

package builder

import (
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/domain/schedule"
	reqdto "salon-booking/internal/handler/dto/request"
	"salon-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ShopID         uuid.UUID
	CustomerID     uuid.UUID
	BarberID       *uuid.UUID
	Date           schedule.Date
	StartTime      string
	Durations      []int
	Location       *time.Location
	ServiceIDs     []uuid.UUID
	Status         booking.Status
	TotalPrice     float64
	Notes          *string
	PricingContext pricing.Context
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewBookingBuilder() *BookingBuilder {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	barber := uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	notes := "first visit"
	return &BookingBuilder{
		ID:         uuid.New(),
		TenantID:   uuid.MustParse("00000000-0000-0000-0000-0000000000a1"),
		ShopID:     uuid.MustParse("00000000-0000-0000-0000-0000000000c1"),
		CustomerID: uuid.MustParse("00000000-0000-0000-0000-0000000000d1"),
		BarberID:   &barber,
		Date:       schedule.NewDate(2025, time.March, 14),
		StartTime:  "10:00",
		Durations:  []int{45, 30},
		Location:   time.UTC,
		ServiceIDs: []uuid.UUID{
			uuid.MustParse("00000000-0000-0000-0000-0000000005e1"),
			uuid.MustParse("00000000-0000-0000-0000-0000000005e2"),
		},
		Status:     booking.StatusPending,
		TotalPrice: 80,
		Notes:      &notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) WithStatus(status booking.Status) *BookingBuilder {
	b.Status = status
	return b
}

func (b *BookingBuilder) WithoutBarber() *BookingBuilder {
	b.BarberID = nil
	return b
}

// WithStartAt moves the booking so that it starts at t (UTC).
func (b *BookingBuilder) WithStartAt(t time.Time) *BookingBuilder {
	t = t.UTC()
	b.Location = time.UTC
	b.Date = schedule.DateOf(t)
	b.StartTime = schedule.FromMinutes(t.Hour()*60 + t.Minute())
	return b
}

func (b *BookingBuilder) Slot() schedule.Slot {
	slot, err := schedule.NewSlot(b.Date, b.StartTime, b.Durations, b.Location)
	if err != nil {
		panic("invalid builder slot: " + err.Error())
	}
	return slot
}

// Build methods
func (b *BookingBuilder) BuildDomain() *booking.Booking {
	return booking.Reconstruct(booking.ReconstructParams{
		ID:             b.ID,
		TenantID:       b.TenantID,
		ShopID:         b.ShopID,
		CustomerID:     b.CustomerID,
		BarberID:       b.BarberID,
		Slot:           b.Slot(),
		ServiceIDs:     b.ServiceIDs,
		Status:         b.Status,
		TotalPrice:     b.TotalPrice,
		Notes:          b.Notes,
		PricingContext: b.PricingContext,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	})
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return queries.NewBookingView(b.BuildDomain())
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		ShopID:      b.ShopID,
		BarberID:    b.BarberID,
		BookingDate: b.Date.String(),
		StartTime:   b.StartTime,
		ServiceIDs:  b.ServiceIDs,
		Notes:       b.Notes,
	}
}
