package request

import (
	"errors"
	"strings"

	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

var errInvertedRange = errors.New("to must not be before from")

type PricingContextRequest struct {
	CampaignID      string `json:"campaignId" binding:"omitempty,max=100"`
	CouponCode      string `json:"couponCode" binding:"omitempty,max=100"`
	CustomerSegment string `json:"customerSegment" binding:"omitempty,max=100"`
}

func (r *PricingContextRequest) ToDomain() pricing.Context {
	if r == nil {
		return pricing.Context{}
	}
	return pricing.Context{
		CampaignID:      strings.TrimSpace(r.CampaignID),
		CouponCode:      strings.TrimSpace(r.CouponCode),
		CustomerSegment: strings.TrimSpace(r.CustomerSegment),
	}
}

type CreateBookingRequest struct {
	ShopID         uuid.UUID              `json:"shopId" binding:"required"`
	BarberID       *uuid.UUID             `json:"barberId,omitempty"`
	BookingDate    string                 `json:"bookingDate" binding:"required,datetime=2006-01-02"`
	StartTime      string                 `json:"startTime" binding:"required,datetime=15:04"`
	ServiceIDs     []uuid.UUID            `json:"serviceIds" binding:"required,min=1,dive,required"`
	Notes          *string                `json:"notes,omitempty" binding:"omitempty,max=500"`
	TotalPrice     *float64               `json:"totalPrice,omitempty" binding:"omitempty,min=0"`
	PricingContext *PricingContextRequest `json:"pricingContext,omitempty"`
}

// UpdateBookingRequest is a partial update; absent fields are left unchanged.
type UpdateBookingRequest struct {
	BarberID    *uuid.UUID  `json:"barberId,omitempty"`
	BookingDate *string     `json:"bookingDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
	StartTime   *string     `json:"startTime,omitempty" binding:"omitempty,datetime=15:04"`
	ServiceIDs  []uuid.UUID `json:"serviceIds,omitempty" binding:"omitempty,min=1,dive,required"`
	Status      *string     `json:"status,omitempty" binding:"omitempty,oneof=pending confirmed cancelled completed no_show"`
	Notes       *string     `json:"notes,omitempty" binding:"omitempty,max=500"`
	TotalPrice  *float64    `json:"totalPrice,omitempty" binding:"omitempty,min=0"`
}

type ListBookingsRequest struct {
	ShopID string `form:"shopId" binding:"omitempty,uuid"`
	From   string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Cursor string `form:"cursor" binding:"omitempty,max=200"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

func (r *ListBookingsRequest) ToFilter() (queries.ListFilter, error) {
	filter := queries.ListFilter{Cursor: r.Cursor, Limit: r.Limit}
	if r.ShopID != "" {
		id, err := uuid.Parse(r.ShopID)
		if err != nil {
			return queries.ListFilter{}, err
		}
		filter.ShopID = &id
	}
	if r.From != "" {
		d, err := schedule.ParseDate(r.From)
		if err != nil {
			return queries.ListFilter{}, err
		}
		filter.From = &d
	}
	if r.To != "" {
		d, err := schedule.ParseDate(r.To)
		if err != nil {
			return queries.ListFilter{}, err
		}
		filter.To = &d
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return queries.ListFilter{}, errInvertedRange
	}
	return filter, nil
}
