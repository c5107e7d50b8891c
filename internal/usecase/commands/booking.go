package commands

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/infra"
	"salon-booking/internal/pkg/clock"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/pkg/patch"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type CreateBookingInput struct {
	TenantID           uuid.UUID
	CustomerID         uuid.UUID
	ShopID             uuid.UUID
	BarberID           *uuid.UUID
	BookingDate        string
	StartTime          string
	ServiceIDs         []uuid.UUID
	Notes              *string
	ExpectedTotalPrice *float64
	PricingContext     pricing.Context
	// IdempotencyKey makes a retried create return the booking of the first successful attempt.
	IdempotencyKey *uuid.UUID
}

// BookingPatch holds the requested changes; nil fields stay as they are.
type BookingPatch struct {
	BarberID           *uuid.UUID
	BookingDate        *string
	StartTime          *string
	ServiceIDs         []uuid.UUID
	Status             *string
	Notes              *string
	ExpectedTotalPrice *float64
}

func (p BookingPatch) touchesSchedule() bool {
	return p.BarberID != nil || p.BookingDate != nil || p.StartTime != nil || p.ServiceIDs != nil
}

type UpdateBookingInput struct {
	BookingID uuid.UUID
	TenantID  uuid.UUID
	Actor     booking.Actor
	Patch     BookingPatch
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error)
	UpdateBooking(ctx context.Context, in UpdateBookingInput) (*booking.Booking, error)
}

type BookingOptions struct {
	// DefaultLocation applies to shops without a timezone.
	DefaultLocation *time.Location
	IdempotencyTTL  time.Duration
}

type bookingCommandsImpl struct {
	uow        shared.UnitOfWork
	settings   *TenantSettings
	publisher  shared.FactPublisher
	clock      clock.Clock
	defaultLoc *time.Location
	replayTTL  time.Duration
	locations  sync.Map
	logger     *slog.Logger
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	settings *TenantSettings,
	publisher shared.FactPublisher,
	clock clock.Clock,
	opts BookingOptions,
	logger *slog.Logger,
) BookingCommands {
	loc := opts.DefaultLocation
	if loc == nil {
		loc = time.UTC
	}
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &bookingCommandsImpl{
		uow:        uow,
		settings:   settings,
		publisher:  publisher,
		clock:      clock,
		defaultLoc: loc,
		replayTTL:  ttl,
		logger:     logger,
	}
}

func (u *bookingCommandsImpl) CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error) {
	started := u.clock.Now()

	var (
		created  *booking.Booking
		replayed bool
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		created, replayed = nil, false
		if in.IdempotencyKey != nil {
			prior, err := u.claimIdempotencyKey(ctx, tx, in)
			if err != nil {
				return err
			}
			if prior != nil {
				created, replayed = prior, true
				return nil
			}
		}

		b, err := u.create(ctx, tx, in)
		if err != nil {
			return err
		}
		if in.IdempotencyKey != nil {
			if err := tx.Idempotency().MarkCompleted(ctx, in.TenantID, in.CustomerID, *in.IdempotencyKey, b.ID()); err != nil {
				return errs.Mark(err, ErrInternal)
			}
		}
		created = b
		return nil
	})
	err = classifyPersistenceError(err)
	elapsed := u.clock.Now().Sub(started)
	u.publisher.Publish(ctx, shared.OperationObserved{Operation: shared.OperationCreate, Code: string(Code(err)), Duration: elapsed})
	if err != nil {
		return nil, err
	}
	if replayed {
		u.logger.InfoContext(ctx, "create booking replayed", "booking_id", created.ID(), "idempotency_key", in.IdempotencyKey.String())
		return created, nil
	}

	u.publisher.Publish(ctx, shared.BookingCreated{
		BookingID:  created.ID(),
		TenantID:   created.TenantID(),
		ShopID:     created.ShopID(),
		CustomerID: created.CustomerID(),
		BarberID:   created.BarberID(),
		StartAt:    created.Slot().StartAt(),
		EndAt:      created.Slot().EndAt(),
		TotalPrice: created.TotalPrice(),
		Duration:   elapsed,
		Success:    true,
	})
	return created, nil
}

func (u *bookingCommandsImpl) create(ctx context.Context, tx shared.Tx, in CreateBookingInput) (*booking.Booking, error) {
	if err := booking.ValidateServiceIDs(in.ServiceIDs); err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}
	date, err := schedule.ParseDate(in.BookingDate)
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}
	shop, err := u.shop(ctx, tx, in.TenantID, in.ShopID)
	if err != nil {
		return nil, err
	}

	durations, baseTotal, err := u.resolveServices(ctx, tx, in.TenantID, in.ShopID, in.ServiceIDs)
	if err != nil {
		return nil, err
	}
	slot, err := schedule.NewSlot(date, in.StartTime, durations, u.location(shop))
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	if err := u.checkLeadTime(ctx, in.TenantID, slot); err != nil {
		return nil, err
	}

	quote := u.quote(ctx, in.TenantID, in.ShopID, slot, baseTotal, in.PricingContext)
	if err := checkExpectedPrice(in.ExpectedTotalPrice, quote.Total); err != nil {
		return nil, err
	}

	if err := u.checkWorkingHours(ctx, tx, in.TenantID, in.ShopID, slot); err != nil {
		return nil, err
	}

	if in.BarberID != nil {
		if err := u.ensureBarber(ctx, tx, in.TenantID, in.ShopID, *in.BarberID); err != nil {
			return nil, err
		}
	}
	barberID, err := resolveSlot(ctx, tx, slotRequest{
		TenantID:   in.TenantID,
		ShopID:     in.ShopID,
		Slot:       slot,
		BarberID:   in.BarberID,
		AutoAssign: true,
	})
	if err != nil {
		return nil, err
	}

	b, err := booking.New(booking.NewParams{
		TenantID:       in.TenantID,
		ShopID:         in.ShopID,
		CustomerID:     in.CustomerID,
		BarberID:       barberID,
		Slot:           slot,
		ServiceIDs:     in.ServiceIDs,
		TotalPrice:     quote.Total,
		Notes:          in.Notes,
		PricingContext: in.PricingContext,
	}, u.clock.Now())
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}

	if err := tx.Bookings().Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (u *bookingCommandsImpl) UpdateBooking(ctx context.Context, in UpdateBookingInput) (*booking.Booking, error) {
	started := u.clock.Now()

	var (
		updated *booking.Booking
		changed *shared.StatusChanged
	)
	err := u.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, sc, err := u.update(ctx, tx, in)
		if err != nil {
			return err
		}
		updated, changed = b, sc
		return nil
	})
	err = classifyPersistenceError(err)
	u.publisher.Publish(ctx, shared.OperationObserved{Operation: shared.OperationUpdate, Code: string(Code(err)), Duration: u.clock.Now().Sub(started)})
	if err != nil {
		return nil, err
	}

	if changed != nil {
		u.publisher.Publish(ctx, *changed)
	}
	return updated, nil
}

func (u *bookingCommandsImpl) update(ctx context.Context, tx shared.Tx, in UpdateBookingInput) (*booking.Booking, *shared.StatusChanged, error) {
	b, err := tx.Bookings().FindByIDForUpdate(ctx, in.TenantID, in.BookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, nil, errs.Mark(err, ErrNotFound)
		}
		return nil, nil, errs.Mark(err, ErrInternal)
	}

	class, err := u.classify(ctx, tx, b, in.Actor)
	if err != nil {
		return nil, nil, err
	}
	if class == booking.ActorGuest {
		return nil, nil, errs.Mark(booking.ErrActorUnauthorized, ErrUnauthorized)
	}

	p := in.Patch
	if p.touchesSchedule() && !class.CanEditSchedule() {
		return nil, nil, errs.Mark(errs.New("schedule fields are not editable by the customer"), ErrForbidden)
	}
	if b.Status().IsTerminal() && class != booking.ActorAdmin && (p.touchesSchedule() || p.Notes != nil) {
		return nil, nil, errs.Mark(booking.ErrTerminalStatus, ErrForbidden)
	}

	from, to := b.Status(), b.Status()
	if p.Status != nil {
		if to, err = booking.ParseStatus(*p.Status); err != nil {
			return nil, nil, errs.Mark(err, ErrValidation)
		}
	}
	if err := booking.CheckRole(class, from, to); err != nil {
		return nil, nil, mapTransitionError(err)
	}

	if p.Notes != nil {
		notes := p.Notes
		if *notes == "" {
			notes = nil
		}
		if err := b.SetNotes(notes); err != nil {
			return nil, nil, errs.Mark(err, ErrValidation)
		}
	}

	// Notes-only and same-status patches keep the stored slot and price.
	recheck := p.touchesSchedule() || p.ExpectedTotalPrice != nil || to != from
	frozen := to == booking.StatusCancelled && !p.touchesSchedule()
	if recheck && !frozen {
		if err := u.reschedule(ctx, tx, b, p); err != nil {
			return nil, nil, err
		}
	}

	if to != from {
		grace, err := u.settings.GraceMinutes(ctx, in.TenantID)
		if err != nil {
			return nil, nil, errs.Mark(err, ErrInternal)
		}
		err = booking.CheckTransition(booking.TransitionRequest{
			Actor:     class,
			From:      from,
			To:        to,
			StartAt:   b.Slot().StartAt(),
			EndAt:     b.Slot().EndAt(),
			HasBarber: b.HasBarber(),
			Grace:     time.Duration(grace) * time.Minute,
			Now:       u.clock.Now(),
		})
		if err != nil {
			return nil, nil, mapTransitionError(err)
		}
	}

	if to.IsActive() && recheck && !frozen {
		if err := u.checkWorkingHours(ctx, tx, b.TenantID(), b.ShopID(), b.Slot()); err != nil {
			return nil, nil, err
		}
		id := b.ID()
		if _, err := resolveSlot(ctx, tx, slotRequest{
			TenantID:  b.TenantID(),
			ShopID:    b.ShopID(),
			Slot:      b.Slot(),
			BarberID:  b.BarberID(),
			ExcludeID: &id,
		}); err != nil {
			return nil, nil, err
		}
	}

	now := u.clock.Now()
	b.ChangeStatus(to)
	b.Touch(now)
	if err := tx.Bookings().Update(ctx, b); err != nil {
		return nil, nil, err
	}

	if to == from {
		return b, nil, nil
	}
	return b, &shared.StatusChanged{
		BookingID:  b.ID(),
		TenantID:   b.TenantID(),
		ShopID:     b.ShopID(),
		From:       from.String(),
		To:         to.String(),
		ActorClass: class.String(),
		ActorID:    in.Actor.ID,
		At:         now,
	}, nil
}

// reschedule applies schedule fields of the patch and reprices the booking
// exactly like creation does.
func (u *bookingCommandsImpl) reschedule(ctx context.Context, tx shared.Tx, b *booking.Booking, p BookingPatch) error {
	current := b.Slot()

	date := current.Date()
	if p.BookingDate != nil {
		d, err := schedule.ParseDate(*p.BookingDate)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}
		date = d
	}
	startTime := patch.Coalesce(p.StartTime, current.StartTime())
	serviceIDs := patch.Slice(p.ServiceIDs, b.ServiceIDs())
	if err := booking.ValidateServiceIDs(serviceIDs); err != nil {
		return errs.Mark(err, ErrValidation)
	}

	shop, err := u.shop(ctx, tx, b.TenantID(), b.ShopID())
	if err != nil {
		return err
	}
	durations, baseTotal, err := u.resolveServices(ctx, tx, b.TenantID(), b.ShopID(), serviceIDs)
	if err != nil {
		return err
	}
	slot, err := schedule.NewSlot(date, startTime, durations, u.location(shop))
	if err != nil {
		return errs.Mark(err, ErrValidation)
	}

	if !slot.StartAt().Equal(current.StartAt()) {
		if err := u.checkLeadTime(ctx, b.TenantID(), slot); err != nil {
			return err
		}
	}

	quote := u.quote(ctx, b.TenantID(), b.ShopID(), slot, baseTotal, b.PricingContext())
	if err := checkExpectedPrice(p.ExpectedTotalPrice, quote.Total); err != nil {
		return err
	}

	if p.BarberID != nil && (b.BarberID() == nil || *b.BarberID() != *p.BarberID) {
		if err := u.ensureBarber(ctx, tx, b.TenantID(), b.ShopID(), *p.BarberID); err != nil {
			return err
		}
		b.AssignBarber(p.BarberID)
	}
	if err := b.Reschedule(slot, serviceIDs); err != nil {
		return errs.Mark(err, ErrValidation)
	}
	if err := b.Reprice(quote.Total); err != nil {
		return errs.Mark(err, ErrValidation)
	}
	return nil
}

func (u *bookingCommandsImpl) classify(ctx context.Context, tx shared.Tx, b *booking.Booking, actor booking.Actor) (booking.ActorClass, error) {
	if actor.Role.IsPrivileged() || actor.ID == uuid.Nil {
		return booking.Classify(actor, b.CustomerID(), false), nil
	}
	isStaff, err := tx.Staff().IsActiveStaff(ctx, b.TenantID(), b.ShopID(), actor.ID)
	if err != nil {
		return "", errs.Mark(err, ErrInternal)
	}
	return booking.Classify(actor, b.CustomerID(), isStaff), nil
}

func (u *bookingCommandsImpl) shop(ctx context.Context, tx shared.Tx, tenantID, shopID uuid.UUID) (*shared.ShopSnapshot, error) {
	shop, err := tx.Catalog().ShopByID(ctx, tenantID, shopID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrValidation)
		}
		return nil, errs.Mark(err, ErrInternal)
	}
	return shop, nil
}

// resolveServices returns the durations and the summed base price of the requested services.
func (u *bookingCommandsImpl) resolveServices(ctx context.Context, tx shared.Tx, tenantID, shopID uuid.UUID, ids []uuid.UUID) ([]int, float64, error) {
	services, err := tx.Catalog().ServicesByIDs(ctx, tenantID, shopID, ids)
	if err != nil {
		return nil, 0, errs.Mark(err, ErrInternal)
	}

	byID := make(map[uuid.UUID]shared.ServiceSnapshot, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}

	durations := make([]int, 0, len(ids))
	var base float64
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, 0, errs.Mark(errs.New("unknown or inactive service "+id.String()), ErrValidation)
		}
		durations = append(durations, s.DurationMinutes)
		base += s.Price
	}
	return durations, pricing.Round2(base), nil
}

func (u *bookingCommandsImpl) checkLeadTime(ctx context.Context, tenantID uuid.UUID, slot schedule.Slot) error {
	lead, err := u.settings.MinLeadMinutes(ctx, tenantID)
	if err != nil {
		return errs.Mark(err, ErrInternal)
	}

	now := u.clock.Now()
	start := slot.StartAt()
	if start.After(now) && start.Sub(now) < time.Duration(lead)*time.Minute {
		return ErrLeadTimeViolation
	}
	return nil
}

func (u *bookingCommandsImpl) quote(ctx context.Context, tenantID, shopID uuid.UUID, slot schedule.Slot, base float64, pctx pricing.Context) pricing.Quote {
	rules := u.settings.PricingRules(ctx, tenantID)
	return rules.Quote(pricing.Input{
		ShopID:    shopID,
		Date:      slot.Date(),
		StartMin:  slot.StartMinutes(),
		EndMin:    slot.EndMinutes(),
		BaseTotal: base,
		Context:   pctx,
		Now:       u.clock.Now(),
	})
}

func (u *bookingCommandsImpl) checkWorkingHours(ctx context.Context, tx shared.Tx, tenantID, shopID uuid.UUID, slot schedule.Slot) error {
	windows, err := tx.WorkingHours().WindowsFor(ctx, tenantID, shopID, slot.Date().Weekday())
	if err != nil {
		return errs.Mark(err, ErrInternal)
	}
	if !slot.FitsWorkingHours(windows) {
		return ErrOutOfHours
	}
	return nil
}

// ensureBarber accepts the same staff that auto-assignment would pick from:
// active staff of the shop with the barber role.
func (u *bookingCommandsImpl) ensureBarber(ctx context.Context, tx shared.Tx, tenantID, shopID, barberID uuid.UUID) error {
	barbers, err := tx.Staff().ActiveBarbers(ctx, tenantID, shopID)
	if err != nil {
		return errs.Mark(err, ErrInternal)
	}
	for _, s := range barbers {
		if s.UserID == barberID {
			return nil
		}
	}
	return errs.Mark(errs.New("requested barber is not an active barber of the shop"), ErrValidation)
}

func (u *bookingCommandsImpl) location(shop *shared.ShopSnapshot) *time.Location {
	if shop.Timezone == "" {
		return u.defaultLoc
	}
	if loc, ok := u.locations.Load(shop.Timezone); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(shop.Timezone)
	if err != nil {
		u.logger.Warn("unknown shop timezone, using default",
			"shop_id", shop.ID.String(), "timezone", shop.Timezone)
		return u.defaultLoc
	}
	u.locations.Store(shop.Timezone, loc)
	return loc
}

func checkExpectedPrice(expected *float64, computed float64) error {
	if expected == nil {
		return nil
	}
	if *expected < 0 {
		return errs.Mark(booking.ErrNegativePrice, ErrValidation)
	}
	if !pricing.Matches(*expected, computed) {
		return newPriceMismatch(*expected, computed)
	}
	return nil
}

func mapTransitionError(err error) error {
	switch {
	case errs.Is(err, booking.ErrActorUnauthorized):
		return errs.Mark(err, ErrUnauthorized)
	case errs.Is(err, booking.ErrTooEarly):
		return errs.Mark(err, ErrTooEarly)
	case errs.Is(err, booking.ErrNoStaff):
		return errs.Mark(err, ErrNoStaff)
	default:
		return errs.Mark(err, ErrForbidden)
	}
}

// classifyPersistenceError turns overlap constraint violations raised by the
// database into the same conflict the pre-check reports.
func classifyPersistenceError(err error) error {
	if err == nil || Code(err) != CodeInternal {
		return err
	}
	if infra.IsKind(err, infra.KindConflict) || infra.IsConflictViolation(err) {
		return errs.Mark(err, ErrConflict)
	}
	return errs.Mark(err, ErrInternal)
}
