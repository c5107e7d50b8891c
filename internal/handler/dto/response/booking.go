package response

import (
	"time"

	"salon-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type PricingContextResponse struct {
	CampaignID      string `json:"campaignId,omitempty"`
	CouponCode      string `json:"couponCode,omitempty"`
	CustomerSegment string `json:"customerSegment,omitempty"`
}

type BookingResponse struct {
	ID             uuid.UUID               `json:"id"`
	ShopID         uuid.UUID               `json:"shopId"`
	CustomerID     uuid.UUID               `json:"customerId"`
	BarberID       *uuid.UUID              `json:"barberId,omitempty"`
	BookingDate    string                  `json:"bookingDate"`
	StartTime      string                  `json:"startTime"`
	EndTime        string                  `json:"endTime"`
	StartAt        time.Time               `json:"startAt"`
	EndAt          time.Time               `json:"endAt"`
	ServiceIDs     []uuid.UUID             `json:"serviceIds"`
	Status         string                  `json:"status"`
	TotalPrice     float64                 `json:"totalPrice"`
	Notes          *string                 `json:"notes,omitempty"`
	PricingContext *PricingContextResponse `json:"pricingContext,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}

func FromBookingView(v *queries.BookingView) (*BookingResponse, error) {
	var res BookingResponse
	if err := copier.CopyWithOption(&res, v, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return &res, nil
}

// PriceMismatchDetail is returned with PRICE_MISMATCH so clients can show the server price.
type PriceMismatchDetail struct {
	ExpectedTotalPrice float64 `json:"expectedTotalPrice"`
	ComputedTotalPrice float64 `json:"computedTotalPrice"`
}

type BookingListResponse struct {
	Items      []*BookingResponse `json:"items"`
	NextCursor *string            `json:"nextCursor,omitempty"`
}

func FromBookingPage(p *queries.BookingPage) (*BookingListResponse, error) {
	res := &BookingListResponse{
		Items:      make([]*BookingResponse, 0, len(p.Items)),
		NextCursor: p.NextCursor,
	}
	for _, v := range p.Items {
		item, err := FromBookingView(v)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}
