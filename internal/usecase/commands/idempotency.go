package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	createEndpoint        = "POST /api/bookings"
	defaultIdempotencyTTL = 24 * time.Hour
)

// claimIdempotencyKey returns the booking of an earlier completed request with the same key,
// or nil when this request owns the key and should go on to create.
// The claim shares the booking transaction, so a failed create releases the key.
func (u *bookingCommandsImpl) claimIdempotencyKey(ctx context.Context, tx shared.Tx, in CreateBookingInput) (*booking.Booking, error) {
	hash, err := requestHash(in)
	if err != nil {
		return nil, errs.Mark(err, ErrInternal)
	}

	now := u.clock.Now()
	claimed, err := tx.Idempotency().TryInsert(ctx, shared.IdempotencyRecord{
		TenantID:    in.TenantID,
		UserID:      in.CustomerID,
		Key:         *in.IdempotencyKey,
		Endpoint:    createEndpoint,
		RequestHash: hash,
		ExpiresAt:   now.Add(u.replayTTL),
		CreatedAt:   now,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrInternal)
	}
	if claimed {
		return nil, nil
	}

	rec, err := tx.Idempotency().Get(ctx, in.TenantID, in.CustomerID, *in.IdempotencyKey)
	if err != nil {
		return nil, errs.Mark(err, ErrInternal)
	}
	if rec.RequestHash != hash {
		return nil, errs.Wrap(ErrIdempotencyKeyReused, "key "+in.IdempotencyKey.String())
	}
	if rec.Status != shared.IdempotencyCompleted || rec.ResultBookingID == nil {
		return nil, errs.Wrap(ErrInternal, "idempotency key "+in.IdempotencyKey.String()+" left in state "+rec.Status)
	}

	prior, err := tx.Bookings().FindByIDForUpdate(ctx, in.TenantID, *rec.ResultBookingID)
	if err != nil {
		return nil, errs.Mark(err, ErrInternal)
	}
	return prior, nil
}

type hashedCreate struct {
	ShopID      uuid.UUID   `json:"shopId"`
	BarberID    *uuid.UUID  `json:"barberId"`
	BookingDate string      `json:"bookingDate"`
	StartTime   string      `json:"startTime"`
	ServiceIDs  []uuid.UUID `json:"serviceIds"`
	Notes       *string     `json:"notes"`
	TotalPrice  *float64    `json:"totalPrice"`
	CampaignID  string      `json:"campaignId"`
	CouponCode  string      `json:"couponCode"`
	Segment     string      `json:"customerSegment"`
}

func requestHash(in CreateBookingInput) (string, error) {
	data, err := json.Marshal(hashedCreate{
		ShopID:      in.ShopID,
		BarberID:    in.BarberID,
		BookingDate: in.BookingDate,
		StartTime:   in.StartTime,
		ServiceIDs:  in.ServiceIDs,
		Notes:       in.Notes,
		TotalPrice:  in.ExpectedTotalPrice,
		CampaignID:  in.PricingContext.CampaignID,
		CouponCode:  in.PricingContext.CouponCode,
		Segment:     in.PricingContext.CustomerSegment,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
