package queries

import (
	"context"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/infra"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errs.New("booking not found")
	ErrReadFailed      = errs.New("failed to read booking")
)

type PricingContextView struct {
	CampaignID      string `json:"campaignId,omitempty"`
	CouponCode      string `json:"couponCode,omitempty"`
	CustomerSegment string `json:"customerSegment,omitempty"`
}

// BookingView is the read model returned by the booking API.
type BookingView struct {
	ID             uuid.UUID           `json:"id"`
	TenantID       uuid.UUID           `json:"tenantId"`
	ShopID         uuid.UUID           `json:"shopId"`
	CustomerID     uuid.UUID           `json:"customerId"`
	BarberID       *uuid.UUID          `json:"barberId,omitempty"`
	BookingDate    string              `json:"bookingDate"`
	StartTime      string              `json:"startTime"`
	EndTime        string              `json:"endTime"`
	StartAt        time.Time           `json:"startAt"`
	EndAt          time.Time           `json:"endAt"`
	ServiceIDs     []uuid.UUID         `json:"serviceIds"`
	Status         string              `json:"status"`
	TotalPrice     float64             `json:"totalPrice"`
	Notes          *string             `json:"notes,omitempty"`
	PricingContext *PricingContextView `json:"pricingContext,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func NewBookingView(b *booking.Booking) *BookingView {
	slot := b.Slot()
	view := &BookingView{
		ID:          b.ID(),
		TenantID:    b.TenantID(),
		ShopID:      b.ShopID(),
		CustomerID:  b.CustomerID(),
		BarberID:    b.BarberID(),
		BookingDate: slot.Date().String(),
		StartTime:   slot.StartTime(),
		EndTime:     slot.EndTime(),
		StartAt:     slot.StartAt(),
		EndAt:       slot.EndAt(),
		ServiceIDs:  b.ServiceIDs(),
		Status:      b.Status().String(),
		TotalPrice:  b.TotalPrice(),
		Notes:       b.Notes(),
		CreatedAt:   b.CreatedAt(),
		UpdatedAt:   b.UpdatedAt(),
	}
	if pctx := b.PricingContext(); !pctx.IsZero() {
		view.PricingContext = &PricingContextView{
			CampaignID:      pctx.CampaignID,
			CouponCode:      pctx.CouponCode,
			CustomerSegment: pctx.CustomerSegment,
		}
	}
	return view
}

// ListFilter narrows a booking listing. Dates are inclusive YYYY-MM-DD bounds.
type ListFilter struct {
	ShopID *uuid.UUID
	From   *schedule.Date
	To     *schedule.Date
	Cursor string
	Limit  int
}

type BookingPage struct {
	Items      []*BookingView
	NextCursor *string
}

type BookingQueries interface {
	// GetByID hides bookings the actor is not related to behind ErrBookingNotFound.
	GetByID(ctx context.Context, tenantID uuid.UUID, actor booking.Actor, id uuid.UUID) (*BookingView, error)
	// List returns the bookings the actor may see, ordered by start instant.
	List(ctx context.Context, tenantID uuid.UUID, actor booking.Actor, filter ListFilter) (*BookingPage, error)
}

// ListQuery is the storage-level listing. A nil VisibleTo lists every booking of the tenant;
// otherwise only bookings the user booked or serves as active staff of the shop.
type ListQuery struct {
	TenantID  uuid.UUID
	ShopID    *uuid.UUID
	VisibleTo *uuid.UUID
	From      *schedule.Date
	To        *schedule.Date
	After     *Cursor
	Limit     int
}

type BookingReader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*booking.Booking, error)
	List(ctx context.Context, q ListQuery) ([]*booking.Booking, error)
}

type StaffChecker interface {
	IsActiveStaff(ctx context.Context, tenantID, shopID, userID uuid.UUID) (bool, error)
}

type bookingQueriesImpl struct {
	reader BookingReader
	staff  StaffChecker
}

func NewBookingQueries(reader BookingReader, staff StaffChecker) BookingQueries {
	return &bookingQueriesImpl{reader: reader, staff: staff}
}

var _ StaffChecker = (shared.StaffDirectory)(nil)

func (q *bookingQueriesImpl) GetByID(ctx context.Context, tenantID uuid.UUID, actor booking.Actor, id uuid.UUID) (*BookingView, error) {
	b, err := q.reader.FindByID(ctx, tenantID, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBookingNotFound)
		}
		return nil, errs.Mark(err, ErrReadFailed)
	}

	isStaff := false
	if !actor.Role.IsPrivileged() && actor.ID != b.CustomerID() {
		isStaff, err = q.staff.IsActiveStaff(ctx, tenantID, b.ShopID(), actor.ID)
		if err != nil {
			return nil, errs.Mark(err, ErrReadFailed)
		}
	}
	if booking.Classify(actor, b.CustomerID(), isStaff) == booking.ActorGuest {
		return nil, ErrBookingNotFound
	}

	return NewBookingView(b), nil
}

func (q *bookingQueriesImpl) List(ctx context.Context, tenantID uuid.UUID, actor booking.Actor, filter ListFilter) (*BookingPage, error) {
	if actor.ID == uuid.Nil && !actor.Role.IsPrivileged() {
		return &BookingPage{Items: []*BookingView{}}, nil
	}
	after, err := DecodeCursor(filter.Cursor)
	if err != nil {
		return nil, err
	}

	limit := ClampLimit(filter.Limit)
	lq := ListQuery{
		TenantID: tenantID,
		ShopID:   filter.ShopID,
		From:     filter.From,
		To:       filter.To,
		After:    after,
		// one extra row tells whether another page exists
		Limit: limit + 1,
	}
	if !actor.Role.IsPrivileged() {
		lq.VisibleTo = &actor.ID
	}

	rows, err := q.reader.List(ctx, lq)
	if err != nil {
		return nil, errs.Mark(err, ErrReadFailed)
	}

	page := &BookingPage{Items: make([]*BookingView, 0, min(len(rows), limit))}
	for i, b := range rows {
		if i == limit {
			last := rows[limit-1]
			next := Cursor{StartAt: last.Slot().StartAt(), ID: last.ID()}.Encode()
			page.NextCursor = &next
			break
		}
		page.Items = append(page.Items, NewBookingView(b))
	}
	return page, nil
}
