//go:build unit

package commands_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/infra"
	"salon-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type serviceRow struct {
	shared.ServiceSnapshot
	active bool
}

// memStore is an in-memory stand-in for the Postgres ledger and its collaborators.
type memStore struct {
	mu       sync.Mutex
	shops    map[uuid.UUID]shared.ShopSnapshot
	services map[uuid.UUID]serviceRow
	staff    map[uuid.UUID]shared.StaffSnapshot
	inactive map[uuid.UUID]bool
	hours    map[time.Weekday][]schedule.WorkingHoursWindow
	bookings map[uuid.UUID]*booking.Booking
	keys     map[idemKey]shared.IdempotencyRecord

	createErr error
	updates   int
}

func newMemStore() *memStore {
	return &memStore{
		shops:    map[uuid.UUID]shared.ShopSnapshot{},
		services: map[uuid.UUID]serviceRow{},
		staff:    map[uuid.UUID]shared.StaffSnapshot{},
		inactive: map[uuid.UUID]bool{},
		hours:    map[time.Weekday][]schedule.WorkingHoursWindow{},
		bookings: map[uuid.UUID]*booking.Booking{},
		keys:     map[idemKey]shared.IdempotencyRecord{},
	}
}

func (s *memStore) addShop(shop shared.ShopSnapshot) { s.shops[shop.ID] = shop }

func (s *memStore) addService(svc shared.ServiceSnapshot, active bool) {
	s.services[svc.ID] = serviceRow{ServiceSnapshot: svc, active: active}
}

func (s *memStore) addStaff(userID uuid.UUID, role string) {
	s.staff[userID] = shared.StaffSnapshot{UserID: userID, Role: role}
}

func (s *memStore) setHours(day time.Weekday, windows ...schedule.WorkingHoursWindow) {
	s.hours[day] = windows
}

func (s *memStore) put(b *booking.Booking) { s.bookings[b.ID()] = clone(b) }

func (s *memStore) get(id uuid.UUID) *booking.Booking { return s.bookings[id] }

func clone(b *booking.Booking) *booking.Booking {
	return booking.Reconstruct(booking.ReconstructParams{
		ID:             b.ID(),
		TenantID:       b.TenantID(),
		ShopID:         b.ShopID(),
		CustomerID:     b.CustomerID(),
		BarberID:       b.BarberID(),
		Slot:           b.Slot(),
		ServiceIDs:     b.ServiceIDs(),
		Status:         b.Status(),
		TotalPrice:     b.TotalPrice(),
		Notes:          b.Notes(),
		PricingContext: b.PricingContext(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	})
}

type memUoW struct{ store *memStore }

// Within rolls back idempotency claims when fn fails; bookings are only written on success paths.
func (u memUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	claimed := &[]idemKey{}
	err := fn(ctx, memTx{store: u.store, claimed: claimed})
	if err != nil {
		for _, k := range *claimed {
			delete(u.store.keys, k)
		}
	}
	return err
}

type memTx struct {
	store   *memStore
	claimed *[]idemKey
}

func (t memTx) Bookings() shared.BookingRepository        { return memBookings{store: t.store} }
func (t memTx) Catalog() shared.CatalogReader             { return memCatalog{store: t.store} }
func (t memTx) Staff() shared.StaffDirectory              { return memStaff{store: t.store} }
func (t memTx) WorkingHours() shared.WorkingHoursReader   { return memHours{store: t.store} }
func (t memTx) Idempotency() shared.IdempotencyRepository { return memIdempotency(t) }

type memBookings struct{ store *memStore }

func (r memBookings) Create(_ context.Context, b *booking.Booking) error {
	if r.store.createErr != nil {
		return r.store.createErr
	}
	r.store.put(b)
	return nil
}

func (r memBookings) Update(_ context.Context, b *booking.Booking) error {
	r.store.updates++
	r.store.put(b)
	return nil
}

func (r memBookings) FindByIDForUpdate(_ context.Context, tenantID, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.store.bookings[id]
	if !ok || b.TenantID() != tenantID {
		return nil, infra.WrapRepoErr(discard, infra.KindNotFound, "booking not found", nil)
	}
	return clone(b), nil
}

func (r memBookings) HasOverlap(_ context.Context, q shared.OverlapQuery) (bool, error) {
	for _, b := range r.store.bookings {
		if b.TenantID() != q.TenantID || !b.Status().IsActive() {
			continue
		}
		if q.ExcludeID != nil && b.ID() == *q.ExcludeID {
			continue
		}
		slot := b.Slot()
		if slot.Date().String() != q.Date.String() {
			continue
		}
		if q.BarberID != nil {
			if b.BarberID() == nil || *b.BarberID() != *q.BarberID {
				continue
			}
		} else if b.BarberID() != nil || b.ShopID() != q.ShopID {
			continue
		}
		if slot.StartAt().Before(q.EndAt) && slot.EndAt().After(q.StartAt) {
			return true, nil
		}
	}
	return false, nil
}

type memCatalog struct{ store *memStore }

func (r memCatalog) ShopByID(_ context.Context, tenantID, shopID uuid.UUID) (*shared.ShopSnapshot, error) {
	shop, ok := r.store.shops[shopID]
	if !ok || shop.TenantID != tenantID {
		return nil, infra.WrapRepoErr(discard, infra.KindNotFound, "shop not found", nil)
	}
	return &shop, nil
}

func (r memCatalog) ServicesByIDs(_ context.Context, _, shopID uuid.UUID, ids []uuid.UUID) ([]shared.ServiceSnapshot, error) {
	var out []shared.ServiceSnapshot
	for _, id := range ids {
		if row, ok := r.store.services[id]; ok && row.active && row.ShopID == shopID {
			out = append(out, row.ServiceSnapshot)
		}
	}
	return out, nil
}

type memStaff struct{ store *memStore }

func (r memStaff) ActiveBarbers(context.Context, uuid.UUID, uuid.UUID) ([]shared.StaffSnapshot, error) {
	var out []shared.StaffSnapshot
	for id, s := range r.store.staff {
		if s.Role == "barber" && !r.store.inactive[id] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, nil
}

func (r memStaff) IsActiveStaff(_ context.Context, _, _, userID uuid.UUID) (bool, error) {
	_, ok := r.store.staff[userID]
	return ok && !r.store.inactive[userID], nil
}

type memHours struct{ store *memStore }

func (r memHours) WindowsFor(_ context.Context, _, _ uuid.UUID, weekday time.Weekday) ([]schedule.WorkingHoursWindow, error) {
	return r.store.hours[weekday], nil
}

type idemKey struct{ tenant, user, key uuid.UUID }

type memIdempotency struct {
	store   *memStore
	claimed *[]idemKey
}

func (r memIdempotency) TryInsert(_ context.Context, rec shared.IdempotencyRecord) (bool, error) {
	k := idemKey{rec.TenantID, rec.UserID, rec.Key}
	if existing, ok := r.store.keys[k]; ok && existing.ExpiresAt.After(rec.CreatedAt) {
		return false, nil
	}
	rec.Status = shared.IdempotencyProcessing
	r.store.keys[k] = rec
	*r.claimed = append(*r.claimed, k)
	return true, nil
}

func (r memIdempotency) Get(_ context.Context, tenantID, userID, key uuid.UUID) (*shared.IdempotencyRecord, error) {
	rec, ok := r.store.keys[idemKey{tenantID, userID, key}]
	if !ok {
		return nil, infra.WrapRepoErr(discard, infra.KindNotFound, "idempotency key not found", nil)
	}
	return &rec, nil
}

func (r memIdempotency) MarkCompleted(_ context.Context, tenantID, userID, key, bookingID uuid.UUID) error {
	k := idemKey{tenantID, userID, key}
	rec, ok := r.store.keys[k]
	if !ok {
		return infra.WrapRepoErr(discard, infra.KindNotFound, "idempotency key not found", nil)
	}
	rec.Status = shared.IdempotencyCompleted
	rec.ResultBookingID = &bookingID
	r.store.keys[k] = rec
	return nil
}

// memSettings serves raw JSON setting values; errs fails individual keys.
type memSettings struct {
	values map[string]string
	errs   map[string]error
}

func (s memSettings) Get(_ context.Context, _ uuid.UUID, key string) ([]byte, bool, error) {
	if err, ok := s.errs[key]; ok {
		return nil, false, err
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	facts []shared.Fact
}

func (p *recordingPublisher) Publish(_ context.Context, fact shared.Fact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.facts = append(p.facts, fact)
}

func (p *recordingPublisher) ofKind(kind shared.FactKind) []shared.Fact {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Fact
	for _, f := range p.facts {
		if f.Kind() == kind {
			out = append(out, f)
		}
	}
	return out
}
