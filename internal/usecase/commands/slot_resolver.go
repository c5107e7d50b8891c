package commands

import (
	"context"

	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type slotRequest struct {
	TenantID  uuid.UUID
	ShopID    uuid.UUID
	Slot      schedule.Slot
	BarberID  *uuid.UUID
	ExcludeID *uuid.UUID
	// AutoAssign lets the resolver pick a barber when BarberID is nil.
	AutoAssign bool
}

// resolveSlot returns the barber the booking ends up with, or nil for a
// general booking. It is an optimistic pre-check: the exclusion constraints
// in the database remain the authoritative guard.
func resolveSlot(ctx context.Context, tx shared.Tx, req slotRequest) (*uuid.UUID, error) {
	if req.BarberID != nil {
		busy, err := hasOverlap(ctx, tx, req, req.BarberID)
		if err != nil {
			return nil, err
		}
		if busy {
			return nil, ErrConflict
		}
		return req.BarberID, nil
	}

	if req.AutoAssign {
		barbers, err := tx.Staff().ActiveBarbers(ctx, req.TenantID, req.ShopID)
		if err != nil {
			return nil, errs.Mark(err, ErrInternal)
		}
		for _, b := range barbers {
			id := b.UserID
			busy, err := hasOverlap(ctx, tx, req, &id)
			if err != nil {
				return nil, err
			}
			if !busy {
				return &id, nil
			}
		}
	}

	busy, err := hasOverlap(ctx, tx, req, nil)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, ErrConflict
	}
	return nil, nil
}

func hasOverlap(ctx context.Context, tx shared.Tx, req slotRequest, barberID *uuid.UUID) (bool, error) {
	busy, err := tx.Bookings().HasOverlap(ctx, shared.OverlapQuery{
		TenantID:  req.TenantID,
		ShopID:    req.ShopID,
		Date:      req.Slot.Date(),
		BarberID:  barberID,
		StartAt:   req.Slot.StartAt(),
		EndAt:     req.Slot.EndAt(),
		ExcludeID: req.ExcludeID,
	})
	if err != nil {
		return false, errs.Mark(err, ErrInternal)
	}
	return busy, nil
}
