//go:build unit

package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/domain/user"
	"salon-booking/internal/infra"
	"salon-booking/internal/pkg/clock"
	"salon-booking/internal/pkg/errs"
	"salon-booking/internal/usecase/commands"
	"salon-booking/internal/usecase/shared"
	"salon-booking/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tenantID   = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	shopID     = uuid.MustParse("00000000-0000-0000-0000-0000000000c1")
	customerID = uuid.MustParse("00000000-0000-0000-0000-0000000000d1")
	barber1    = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	barber2    = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	cut        = uuid.MustParse("00000000-0000-0000-0000-0000000005e1")
	wash       = uuid.MustParse("00000000-0000-0000-0000-0000000005e2")
	adminID    = uuid.MustParse("00000000-0000-0000-0000-0000000000f1")

	// 2025-03-14 is a Friday.
	bookingDay = schedule.NewDate(2025, time.March, 14)
	baseNow    = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
)

type env struct {
	store     *memStore
	settings  memSettings
	publisher *recordingPublisher
	clock     *clock.MockClock
}

func newEnv() *env {
	store := newMemStore()
	store.addShop(shared.ShopSnapshot{ID: shopID, TenantID: tenantID, Name: "Main street"})
	store.addService(shared.ServiceSnapshot{ID: cut, ShopID: shopID, Name: "Cut", DurationMinutes: 45, Price: 50}, true)
	store.addService(shared.ServiceSnapshot{ID: wash, ShopID: shopID, Name: "Wash", DurationMinutes: 30, Price: 30}, true)
	store.addStaff(barber1, "barber")
	store.addStaff(barber2, "barber")
	store.setHours(time.Friday, schedule.WorkingHoursWindow{Open24h: true})

	return &env{
		store:     store,
		settings:  memSettings{values: map[string]string{}, errs: map[string]error{}},
		publisher: &recordingPublisher{},
		clock:     clock.NewMockClock(baseNow),
	}
}

func (e *env) commands() commands.BookingCommands {
	return commands.NewBookingCommands(
		memUoW{store: e.store},
		commands.NewTenantSettings(e.settings, discard),
		e.publisher,
		e.clock,
		commands.BookingOptions{DefaultLocation: time.UTC},
		discard,
	)
}

func createInput(mutate ...func(*commands.CreateBookingInput)) commands.CreateBookingInput {
	in := commands.CreateBookingInput{
		TenantID:    tenantID,
		CustomerID:  customerID,
		ShopID:      shopID,
		BookingDate: bookingDay.String(),
		StartTime:   "10:00",
		ServiceIDs:  []uuid.UUID{cut, wash},
	}
	for _, m := range mutate {
		m(&in)
	}
	return in
}

func withBarber(id uuid.UUID) func(*commands.CreateBookingInput) {
	return func(in *commands.CreateBookingInput) { in.BarberID = &id }
}

func withStart(hhmm string) func(*commands.CreateBookingInput) {
	return func(in *commands.CreateBookingInput) { in.StartTime = hhmm }
}

func withExpected(price float64) func(*commands.CreateBookingInput) {
	return func(in *commands.CreateBookingInput) { in.ExpectedTotalPrice = &price }
}

// existing stores a confirmed booking of the shop on bookingDay.
func (e *env) existing(barberID *uuid.UUID, start string, status booking.Status) *booking.Booking {
	b := builder.NewBookingBuilder().
		With(func(bb *builder.BookingBuilder) {
			bb.BarberID = barberID
			bb.StartTime = start
			bb.CustomerID = uuid.New()
		}).
		WithStatus(status).
		BuildDomain()
	e.store.put(b)
	return b
}

func ptr[T any](v T) *T { return &v }

func TestCreateBooking_AutoAssignsFirstFreeBarber(t *testing.T) {
	e := newEnv()

	got, err := e.commands().CreateBooking(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, "10:00", got.Slot().StartTime())
	assert.Equal(t, "11:15", got.Slot().EndTime())
	assert.Equal(t, time.Date(2025, time.March, 14, 11, 15, 0, 0, time.UTC), got.Slot().EndAt())
	require.NotNil(t, got.BarberID())
	assert.Equal(t, barber1, *got.BarberID())
	assert.Equal(t, booking.StatusPending, got.Status())
	assert.Equal(t, 80.0, got.TotalPrice())
	assert.NotNil(t, e.store.get(got.ID()))

	created := e.publisher.ofKind(shared.FactBookingCreated)
	require.Len(t, created, 1)
	fact := created[0].(shared.BookingCreated)
	assert.Equal(t, got.ID(), fact.BookingID)
	assert.True(t, fact.Success)

	observed := e.publisher.ofKind(shared.FactOperationObserved)
	require.Len(t, observed, 1)
	assert.Equal(t, shared.OperationObserved{Operation: shared.OperationCreate, Code: "OK"}, observed[0])
}

func TestCreateBooking_ResolvesSlot(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(e *env)
		in         commands.CreateBookingInput
		wantCode   commands.ErrorCode
		wantBarber *uuid.UUID
	}{
		{
			name: "requested barber busy",
			setup: func(e *env) {
				e.existing(&barber1, "10:00", booking.StatusConfirmed)
			},
			in:       createInput(withBarber(barber1), withStart("10:30")),
			wantCode: commands.CodeConflict,
		},
		{
			name: "requested barber free while another is busy",
			setup: func(e *env) {
				e.existing(&barber1, "10:00", booking.StatusConfirmed)
			},
			in:         createInput(withBarber(barber2), withStart("10:30")),
			wantCode:   commands.CodeOK,
			wantBarber: &barber2,
		},
		{
			name: "back to back is not an overlap",
			setup: func(e *env) {
				e.existing(&barber1, "08:45", booking.StatusConfirmed)
			},
			in:         createInput(withBarber(barber1)),
			wantCode:   commands.CodeOK,
			wantBarber: &barber1,
		},
		{
			name: "cancelled bookings free the slot",
			setup: func(e *env) {
				e.existing(&barber1, "10:00", booking.StatusCancelled)
			},
			in:         createInput(withBarber(barber1)),
			wantCode:   commands.CodeOK,
			wantBarber: &barber1,
		},
		{
			name: "auto assign skips busy barber",
			setup: func(e *env) {
				e.existing(&barber1, "10:00", booking.StatusPending)
			},
			in:         createInput(),
			wantCode:   commands.CodeOK,
			wantBarber: &barber2,
		},
		{
			name: "all barbers busy falls back to a general booking",
			setup: func(e *env) {
				e.existing(&barber1, "10:00", booking.StatusPending)
				e.existing(&barber2, "10:00", booking.StatusConfirmed)
			},
			in:       createInput(),
			wantCode: commands.CodeOK,
		},
		{
			name: "no barbers at all creates a general booking",
			setup: func(e *env) {
				e.store.staff = map[uuid.UUID]shared.StaffSnapshot{}
			},
			in:       createInput(),
			wantCode: commands.CodeOK,
		},
		{
			name: "general booking overlaps another general booking",
			setup: func(e *env) {
				e.store.staff = map[uuid.UUID]shared.StaffSnapshot{}
				e.existing(nil, "11:00", booking.StatusPending)
			},
			in:       createInput(),
			wantCode: commands.CodeConflict,
		},
		{
			name: "inactive barber is skipped by auto assign",
			setup: func(e *env) {
				e.store.inactive[barber1] = true
			},
			in:         createInput(),
			wantCode:   commands.CodeOK,
			wantBarber: &barber2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			tt.setup(e)

			got, err := e.commands().CreateBooking(context.Background(), tt.in)

			assert.Equal(t, tt.wantCode, commands.Code(err))
			if tt.wantCode != commands.CodeOK {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			if tt.wantBarber == nil {
				assert.Nil(t, got.BarberID())
			} else {
				require.NotNil(t, got.BarberID())
				assert.Equal(t, *tt.wantBarber, *got.BarberID())
			}
		})
	}
}

func TestCreateBooking_WorkingHours(t *testing.T) {
	tests := []struct {
		name     string
		windows  []schedule.WorkingHoursWindow
		start    string
		wantCode commands.ErrorCode
	}{
		{
			name:     "starts after closing",
			windows:  []schedule.WorkingHoursWindow{{OpenMinutes: 9 * 60, CloseMinutes: 10 * 60}},
			start:    "10:30",
			wantCode: commands.CodeOutOfHours,
		},
		{
			name:     "ends exactly at closing",
			windows:  []schedule.WorkingHoursWindow{{OpenMinutes: 9 * 60, CloseMinutes: 11*60 + 15}},
			start:    "10:00",
			wantCode: commands.CodeOK,
		},
		{
			name:     "runs past closing",
			windows:  []schedule.WorkingHoursWindow{{OpenMinutes: 9 * 60, CloseMinutes: 11 * 60}},
			start:    "10:00",
			wantCode: commands.CodeOutOfHours,
		},
		{
			name: "fits the second shift",
			windows: []schedule.WorkingHoursWindow{
				{OpenMinutes: 9 * 60, CloseMinutes: 12 * 60},
				{OpenMinutes: 13 * 60, CloseMinutes: 18 * 60},
			},
			start:    "13:30",
			wantCode: commands.CodeOK,
		},
		{
			name: "spans the lunch break",
			windows: []schedule.WorkingHoursWindow{
				{OpenMinutes: 9 * 60, CloseMinutes: 12 * 60},
				{OpenMinutes: 13 * 60, CloseMinutes: 18 * 60},
			},
			start:    "11:30",
			wantCode: commands.CodeOutOfHours,
		},
		{
			name:     "no rows uses default hours",
			windows:  nil,
			start:    "17:00",
			wantCode: commands.CodeOutOfHours,
		},
		{
			name:     "no rows inside default hours",
			windows:  nil,
			start:    "09:00",
			wantCode: commands.CodeOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.store.setHours(time.Friday, tt.windows...)

			_, err := e.commands().CreateBooking(context.Background(), createInput(withStart(tt.start)))
			assert.Equal(t, tt.wantCode, commands.Code(err))
		})
	}
}

func TestCreateBooking_UsesShopTimezone(t *testing.T) {
	e := newEnv()
	e.store.addShop(shared.ShopSnapshot{ID: shopID, TenantID: tenantID, Name: "Tokyo", Timezone: "Asia/Tokyo"})

	got, err := e.commands().CreateBooking(context.Background(), createInput())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.March, 14, 1, 0, 0, 0, time.UTC), got.Slot().StartAt().UTC())
	assert.Equal(t, "10:00", got.Slot().StartTime())
}

func TestCreateBooking_LeadTime(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		setting  string
		wantCode commands.ErrorCode
	}{
		{
			name:     "inside default lead time",
			now:      time.Date(2025, time.March, 14, 9, 45, 0, 0, time.UTC),
			wantCode: commands.CodeLeadTimeViolation,
		},
		{
			name:     "exactly at lead time",
			now:      time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC),
			wantCode: commands.CodeOK,
		},
		{
			name:     "past start is not a lead time violation",
			now:      time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC),
			wantCode: commands.CodeOK,
		},
		{
			name:     "tenant setting overrides default",
			now:      time.Date(2025, time.March, 14, 8, 30, 0, 0, time.UTC),
			setting:  "120",
			wantCode: commands.CodeLeadTimeViolation,
		},
		{
			name:     "zero disables the check",
			now:      time.Date(2025, time.March, 14, 9, 59, 0, 0, time.UTC),
			setting:  "0",
			wantCode: commands.CodeOK,
		},
		{
			name:     "malformed setting falls back to default",
			now:      time.Date(2025, time.March, 14, 9, 45, 0, 0, time.UTC),
			setting:  `"soon"`,
			wantCode: commands.CodeLeadTimeViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.clock.Set(tt.now)
			if tt.setting != "" {
				e.settings.values[commands.SettingMinLeadMinutes] = tt.setting
			}

			_, err := e.commands().CreateBooking(context.Background(), createInput())
			assert.Equal(t, tt.wantCode, commands.Code(err))
		})
	}
}

func TestCreateBooking_LeadTimeSettingUnavailable(t *testing.T) {
	e := newEnv()
	e.settings.errs[commands.SettingMinLeadMinutes] = errors.New("connection reset")

	_, err := e.commands().CreateBooking(context.Background(), createInput())
	assert.Equal(t, commands.CodeInternal, commands.Code(err))
}

func TestCreateBooking_ExpectedPrice(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		wantCode commands.ErrorCode
	}{
		{name: "exact", expected: 80, wantCode: commands.CodeOK},
		{name: "one cent above", expected: 80.01, wantCode: commands.CodeOK},
		{name: "one cent below", expected: 79.99, wantCode: commands.CodeOK},
		{name: "two cents above", expected: 80.02, wantCode: commands.CodePriceMismatch},
		{name: "two cents below", expected: 79.98, wantCode: commands.CodePriceMismatch},
		{name: "negative", expected: -1, wantCode: commands.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()

			_, err := e.commands().CreateBooking(context.Background(), createInput(withExpected(tt.expected)))
			assert.Equal(t, tt.wantCode, commands.Code(err))

			if tt.wantCode == commands.CodePriceMismatch {
				var mismatch *commands.PriceMismatchError
				require.True(t, errs.As(err, &mismatch))
				assert.Equal(t, 80.0, mismatch.Computed)
				assert.Equal(t, tt.expected, mismatch.Expected)
				assert.Empty(t, e.store.bookings)
			}
		})
	}
}

func TestCreateBooking_Pricing(t *testing.T) {
	const rules = `{
		"peakHours": [{"weekday": 5, "start": "09:00", "end": "12:00", "multiplier": 1.5}],
		"coupons": [
			{"code": "SPRING10", "active": true, "percentOff": 10},
			{"code": "EXPIRED", "active": true, "amountOff": 20, "validTo": "2025-01-01T00:00:00Z"}
		],
		"segments": [{"segment": "vip", "amountOff": 5}]
	}`

	tests := []struct {
		name  string
		rules string
		start string
		ctx   pricing.Context
		want  float64
	}{
		{name: "no rules", start: "10:00", want: 80},
		{name: "peak", rules: rules, start: "10:00", want: 120},
		{name: "off peak window", rules: rules, start: "13:00", want: 80},
		{name: "peak then coupon", rules: rules, start: "10:00", ctx: pricing.Context{CouponCode: "SPRING10"}, want: 108},
		{name: "expired coupon ignored", rules: rules, start: "13:00", ctx: pricing.Context{CouponCode: "EXPIRED"}, want: 80},
		{name: "coupon then segment", rules: rules, start: "13:00", ctx: pricing.Context{CouponCode: "SPRING10", CustomerSegment: "vip"}, want: 67},
		{name: "malformed rules fall back to base", rules: `{"peakHours": 3}`, start: "10:00", want: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			if tt.rules != "" {
				e.settings.values[commands.SettingPricingRules] = tt.rules
			}

			got, err := e.commands().CreateBooking(context.Background(), createInput(
				withStart(tt.start),
				func(in *commands.CreateBookingInput) { in.PricingContext = tt.ctx },
			))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TotalPrice())
			assert.Equal(t, tt.ctx, got.PricingContext())
		})
	}
}

func TestCreateBooking_PricingRulesUnavailable(t *testing.T) {
	e := newEnv()
	e.settings.errs[commands.SettingPricingRules] = errors.New("timeout")

	got, err := e.commands().CreateBooking(context.Background(), createInput(withExpected(80)))
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.TotalPrice())
}

func TestCreateBooking_Validation(t *testing.T) {
	unknown := uuid.MustParse("00000000-0000-0000-0000-0000000005ff")
	retired := uuid.MustParse("00000000-0000-0000-0000-0000000005e3")
	stranger := uuid.MustParse("00000000-0000-0000-0000-0000000000e9")

	tests := []struct {
		name   string
		setup  func(e *env)
		mutate func(*commands.CreateBookingInput)
	}{
		{
			name:   "empty services",
			mutate: func(in *commands.CreateBookingInput) { in.ServiceIDs = nil },
		},
		{
			name:   "duplicate services",
			mutate: func(in *commands.CreateBookingInput) { in.ServiceIDs = []uuid.UUID{cut, cut} },
		},
		{
			name:   "unknown service",
			mutate: func(in *commands.CreateBookingInput) { in.ServiceIDs = []uuid.UUID{cut, unknown} },
		},
		{
			name: "inactive service",
			setup: func(e *env) {
				e.store.addService(shared.ServiceSnapshot{ID: retired, ShopID: shopID, DurationMinutes: 20, Price: 10}, false)
			},
			mutate: func(in *commands.CreateBookingInput) { in.ServiceIDs = []uuid.UUID{retired} },
		},
		{
			name:   "unknown shop",
			mutate: func(in *commands.CreateBookingInput) { in.ShopID = uuid.New() },
		},
		{
			name:   "other tenant",
			mutate: func(in *commands.CreateBookingInput) { in.TenantID = uuid.New() },
		},
		{
			name:   "barber is not staff",
			mutate: withBarber(stranger),
		},
		{
			name:   "requested staff is not a barber",
			setup:  func(e *env) { e.store.addStaff(stranger, "receptionist") },
			mutate: withBarber(stranger),
		},
		{
			name:   "malformed date",
			mutate: func(in *commands.CreateBookingInput) { in.BookingDate = "14/03/2025" },
		},
		{
			name:   "malformed start",
			mutate: withStart("9:00"),
		},
		{
			name:   "ends after midnight",
			mutate: withStart("23:30"),
		},
		{
			name: "notes too long",
			mutate: func(in *commands.CreateBookingInput) {
				long := strings.Repeat("a", booking.MaxNotesLength+1)
				in.Notes = &long
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			if tt.setup != nil {
				tt.setup(e)
			}

			got, err := e.commands().CreateBooking(context.Background(), createInput(tt.mutate))
			assert.Equal(t, commands.CodeValidation, commands.Code(err))
			assert.Nil(t, got)
			assert.Empty(t, e.store.bookings)

			observed := e.publisher.ofKind(shared.FactOperationObserved)
			require.Len(t, observed, 1)
			assert.Equal(t, string(commands.CodeValidation), observed[0].(shared.OperationObserved).Code)
			assert.Empty(t, e.publisher.ofKind(shared.FactBookingCreated))
		})
	}
}

func TestCreateBooking_PersistenceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode commands.ErrorCode
	}{
		{
			name:     "repository conflict",
			err:      infra.WrapRepoErr(discard, infra.KindConflict, "insert booking", &pgconn.PgError{Code: "23P01", ConstraintName: "bookings_barber_no_overlap"}),
			wantCode: commands.CodeConflict,
		},
		{
			name:     "raw exclusion violation at commit",
			err:      &pgconn.PgError{Code: "23P01", ConstraintName: "bookings_general_no_overlap"},
			wantCode: commands.CodeConflict,
		},
		{
			name:     "unrelated failure",
			err:      errors.New("connection refused"),
			wantCode: commands.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.store.createErr = tt.err

			_, err := e.commands().CreateBooking(context.Background(), createInput())
			assert.Equal(t, tt.wantCode, commands.Code(err))
		})
	}
}

func withKey(key uuid.UUID) func(*commands.CreateBookingInput) {
	return func(in *commands.CreateBookingInput) { in.IdempotencyKey = &key }
}

func TestCreateBooking_IdempotencyKey(t *testing.T) {
	t.Run("retry replays the first booking", func(t *testing.T) {
		e := newEnv()
		key := uuid.New()

		first, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key)))
		require.NoError(t, err)
		second, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key)))
		require.NoError(t, err)

		assert.Equal(t, first.ID(), second.ID())
		assert.Len(t, e.store.bookings, 1)
		assert.Len(t, e.publisher.ofKind(shared.FactBookingCreated), 1)
		assert.Len(t, e.publisher.ofKind(shared.FactOperationObserved), 2)
	})

	t.Run("different payload under the same key", func(t *testing.T) {
		e := newEnv()
		key := uuid.New()

		_, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key)))
		require.NoError(t, err)
		_, err = e.commands().CreateBooking(context.Background(), createInput(withKey(key), withStart("14:00")))

		assert.Equal(t, commands.CodeIdempotencyReused, commands.Code(err))
		assert.Len(t, e.store.bookings, 1)
	})

	t.Run("failed attempt releases the key", func(t *testing.T) {
		e := newEnv()
		key := uuid.New()
		blocker := e.existing(ptr(barber1), "10:00", booking.StatusConfirmed)

		_, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key), withBarber(barber1)))
		require.Equal(t, commands.CodeConflict, commands.Code(err))
		assert.Empty(t, e.store.keys)

		delete(e.store.bookings, blocker.ID())
		got, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key), withBarber(barber1)))
		require.NoError(t, err)
		assert.Equal(t, barber1, *got.BarberID())
	})

	t.Run("expired key starts over", func(t *testing.T) {
		e := newEnv()
		key := uuid.New()

		first, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key)))
		require.NoError(t, err)

		e.clock.Add(25 * time.Hour)
		second, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key), withStart("14:00")))
		require.NoError(t, err)

		assert.NotEqual(t, first.ID(), second.ID())
		assert.Len(t, e.store.bookings, 2)
	})

	t.Run("keys are scoped per customer", func(t *testing.T) {
		e := newEnv()
		key := uuid.New()

		first, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key)))
		require.NoError(t, err)
		other, err := e.commands().CreateBooking(context.Background(), createInput(withKey(key), func(in *commands.CreateBookingInput) {
			in.CustomerID = uuid.New()
		}))
		require.NoError(t, err)

		assert.NotEqual(t, first.ID(), other.ID())
	})
}

func updateInput(id uuid.UUID, actor booking.Actor, patch commands.BookingPatch) commands.UpdateBookingInput {
	return commands.UpdateBookingInput{BookingID: id, TenantID: tenantID, Actor: actor, Patch: patch}
}

var (
	customerActor = booking.Actor{ID: customerID, Role: user.RoleCustomer}
	barberActor   = booking.Actor{ID: barber1, Role: user.RoleStaff}
	adminActor    = booking.Actor{ID: adminID, Role: user.RoleAdmin}
)

// ownBooking stores a booking of customerActor served by barber1 at 10:00 on bookingDay.
func (e *env) ownBooking(status booking.Status) *booking.Booking {
	b := builder.NewBookingBuilder().WithStatus(status).BuildDomain()
	e.store.put(b)
	return b
}

func TestUpdateBooking_CustomerRights(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(e *env)
		patch      commands.BookingPatch
		wantCode   commands.ErrorCode
		wantStatus booking.Status
	}{
		{
			name:     "confirm is forbidden",
			patch:    commands.BookingPatch{Status: ptr("confirmed")},
			wantCode: commands.CodeForbidden,
		},
		{
			name:       "cancel own pending booking",
			patch:      commands.BookingPatch{Status: ptr("cancelled")},
			wantCode:   commands.CodeOK,
			wantStatus: booking.StatusCancelled,
		},
		{
			name:     "schedule change is forbidden",
			patch:    commands.BookingPatch{StartTime: ptr("11:00")},
			wantCode: commands.CodeForbidden,
		},
		{
			name:       "notes are editable",
			patch:      commands.BookingPatch{Notes: ptr("running late")},
			wantCode:   commands.CodeOK,
			wantStatus: booking.StatusPending,
		},
		{
			name: "notes stay editable after the hours changed",
			setup: func(e *env) {
				e.store.setHours(time.Friday, schedule.WorkingHoursWindow{OpenMinutes: 14 * 60, CloseMinutes: 18 * 60})
			},
			patch:      commands.BookingPatch{Notes: ptr("running late")},
			wantCode:   commands.CodeOK,
			wantStatus: booking.StatusPending,
		},
		{
			name: "notes edit keeps the price after pricing rules changed",
			setup: func(e *env) {
				e.settings.values[commands.SettingPricingRules] = `{"peakHours":[{"start":"09:00","end":"12:00","multiplier":1.5}]}`
			},
			patch:      commands.BookingPatch{Notes: ptr("running late")},
			wantCode:   commands.CodeOK,
			wantStatus: booking.StatusPending,
		},
		{
			name: "same status keeps the slot after it got double booked",
			setup: func(e *env) {
				e.existing(&barber1, "10:30", booking.StatusConfirmed)
			},
			patch:      commands.BookingPatch{Status: ptr("pending")},
			wantCode:   commands.CodeOK,
			wantStatus: booking.StatusPending,
		},
		{
			name:     "unknown status",
			patch:    commands.BookingPatch{Status: ptr("archived")},
			wantCode: commands.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			b := e.ownBooking(booking.StatusPending)
			if tt.setup != nil {
				tt.setup(e)
			}

			got, err := e.commands().UpdateBooking(context.Background(), updateInput(b.ID(), customerActor, tt.patch))

			assert.Equal(t, tt.wantCode, commands.Code(err))
			if tt.wantCode != commands.CodeOK {
				assert.Equal(t, booking.StatusPending, e.store.get(b.ID()).Status())
				return
			}
			assert.Equal(t, tt.wantStatus, got.Status())
			assert.Equal(t, tt.wantStatus, e.store.get(b.ID()).Status())
			if tt.wantStatus == booking.StatusPending {
				assert.InDelta(t, b.TotalPrice(), got.TotalPrice(), 0.001)
				assert.True(t, b.Slot().StartAt().Equal(got.Slot().StartAt()))
			}
		})
	}
}

func TestUpdateBooking_CancelPublishesStatusChange(t *testing.T) {
	e := newEnv()
	b := e.ownBooking(booking.StatusPending)
	e.clock.Set(baseNow.Add(time.Hour))

	_, err := e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), customerActor, commands.BookingPatch{Status: ptr("cancelled")}))
	require.NoError(t, err)

	changed := e.publisher.ofKind(shared.FactStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, shared.StatusChanged{
		BookingID:  b.ID(),
		TenantID:   tenantID,
		ShopID:     shopID,
		From:       "pending",
		To:         "cancelled",
		ActorClass: "customer",
		ActorID:    customerID,
		At:         baseNow.Add(time.Hour),
	}, changed[0])
}

func TestUpdateBooking_CancelIgnoresScheduleChecks(t *testing.T) {
	e := newEnv()
	b := e.ownBooking(booking.StatusPending)
	// hours shrank and the slot got double booked after the fact
	e.store.setHours(time.Friday, schedule.WorkingHoursWindow{OpenMinutes: 14 * 60, CloseMinutes: 18 * 60})
	e.existing(&barber1, "10:30", booking.StatusConfirmed)

	got, err := e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), customerActor, commands.BookingPatch{Status: ptr("cancelled")}))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status())
}

func TestUpdateBooking_Guest(t *testing.T) {
	e := newEnv()
	b := e.ownBooking(booking.StatusPending)
	stranger := booking.Actor{ID: uuid.New(), Role: user.RoleCustomer}

	_, err := e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), stranger, commands.BookingPatch{Status: ptr("cancelled")}))
	assert.Equal(t, commands.CodeUnauthorized, commands.Code(err))
	assert.Equal(t, 0, e.store.updates)
}

func TestUpdateBooking_NotFound(t *testing.T) {
	e := newEnv()
	b := e.ownBooking(booking.StatusPending)

	_, err := e.commands().UpdateBooking(context.Background(),
		updateInput(uuid.New(), adminActor, commands.BookingPatch{Notes: ptr("x")}))
	assert.Equal(t, commands.CodeNotFound, commands.Code(err))

	other := updateInput(b.ID(), adminActor, commands.BookingPatch{Notes: ptr("x")})
	other.TenantID = uuid.New()
	_, err = e.commands().UpdateBooking(context.Background(), other)
	assert.Equal(t, commands.CodeNotFound, commands.Code(err))
}

func TestUpdateBooking_TimeGuards(t *testing.T) {
	startAt := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	endAt := startAt.Add(75 * time.Minute)

	tests := []struct {
		name     string
		status   booking.Status
		barber   bool
		to       string
		now      time.Time
		grace    string
		wantCode commands.ErrorCode
	}{
		{
			name:     "no show inside grace",
			status:   booking.StatusConfirmed,
			barber:   true,
			to:       "no_show",
			now:      startAt.Add(5 * time.Minute),
			wantCode: commands.CodeTooEarly,
		},
		{
			name:     "no show after grace",
			status:   booking.StatusConfirmed,
			barber:   true,
			to:       "no_show",
			now:      startAt.Add(40 * time.Minute),
			wantCode: commands.CodeOK,
		},
		{
			name:     "no show at grace boundary",
			status:   booking.StatusConfirmed,
			barber:   true,
			to:       "no_show",
			now:      startAt.Add(15 * time.Minute),
			wantCode: commands.CodeOK,
		},
		{
			name:     "tenant grace",
			status:   booking.StatusConfirmed,
			barber:   true,
			to:       "no_show",
			now:      startAt.Add(40 * time.Minute),
			grace:    "60",
			wantCode: commands.CodeTooEarly,
		},
		{
			name:     "complete before end",
			status:   booking.StatusConfirmed,
			barber:   true,
			to:       "completed",
			now:      endAt,
			wantCode: commands.CodeTooEarly,
		},
		{
			name:     "complete after end",
			status:   booking.StatusConfirmed,
			barber:   true,
			to:       "completed",
			now:      endAt.Add(time.Minute),
			wantCode: commands.CodeOK,
		},
		{
			name:     "complete without barber",
			status:   booking.StatusConfirmed,
			to:       "completed",
			now:      endAt.Add(time.Minute),
			wantCode: commands.CodeNoStaff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			e.clock.Set(tt.now)
			if tt.grace != "" {
				e.settings.values[commands.SettingGraceMinutes] = tt.grace
			}
			bb := builder.NewBookingBuilder().WithStatus(tt.status)
			if !tt.barber {
				bb.WithoutBarber()
			}
			b := bb.BuildDomain()
			e.store.put(b)

			got, err := e.commands().UpdateBooking(context.Background(),
				updateInput(b.ID(), adminActor, commands.BookingPatch{Status: &tt.to}))

			assert.Equal(t, tt.wantCode, commands.Code(err))
			if tt.wantCode == commands.CodeOK {
				assert.Equal(t, tt.to, got.Status().String())
			}
		})
	}
}

func TestUpdateBooking_StaffRights(t *testing.T) {
	tests := []struct {
		name     string
		status   booking.Status
		patch    commands.BookingPatch
		wantCode commands.ErrorCode
	}{
		{name: "confirm pending", status: booking.StatusPending, patch: commands.BookingPatch{Status: ptr("confirmed")}, wantCode: commands.CodeOK},
		{name: "complete pending", status: booking.StatusPending, patch: commands.BookingPatch{Status: ptr("completed")}, wantCode: commands.CodeForbidden},
		{name: "reopen cancelled", status: booking.StatusCancelled, patch: commands.BookingPatch{Status: ptr("confirmed")}, wantCode: commands.CodeForbidden},
		{name: "edit notes of completed", status: booking.StatusCompleted, patch: commands.BookingPatch{Notes: ptr("tip")}, wantCode: commands.CodeForbidden},
		{name: "move pending", status: booking.StatusPending, patch: commands.BookingPatch{StartTime: ptr("14:00")}, wantCode: commands.CodeOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			b := e.ownBooking(tt.status)

			_, err := e.commands().UpdateBooking(context.Background(), updateInput(b.ID(), barberActor, tt.patch))
			assert.Equal(t, tt.wantCode, commands.Code(err))
		})
	}
}

func TestUpdateBooking_AdminReopensCancelled(t *testing.T) {
	e := newEnv()
	b := e.ownBooking(booking.StatusCancelled)

	got, err := e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), adminActor, commands.BookingPatch{Status: ptr("confirmed")}))
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status())

	changed := e.publisher.ofKind(shared.FactStatusChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "admin", changed[0].(shared.StatusChanged).ActorClass)
}

func TestUpdateBooking_ReopenRechecksSlot(t *testing.T) {
	e := newEnv()
	b := e.ownBooking(booking.StatusCancelled)
	e.existing(&barber1, "10:30", booking.StatusConfirmed)

	_, err := e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), adminActor, commands.BookingPatch{Status: ptr("confirmed")}))
	assert.Equal(t, commands.CodeConflict, commands.Code(err))
}

func TestUpdateBooking_Reschedule(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(e *env)
		patch     commands.BookingPatch
		wantCode  commands.ErrorCode
		wantStart string
		wantEnd   string
		wantPrice float64
	}{
		{
			name:      "keeps its own slot",
			patch:     commands.BookingPatch{StartTime: ptr("10:15")},
			wantCode:  commands.CodeOK,
			wantStart: "10:15",
			wantEnd:   "11:30",
			wantPrice: 80,
		},
		{
			name: "moves onto another booking",
			setup: func(e *env) {
				e.existing(&barber1, "14:00", booking.StatusPending)
			},
			patch:    commands.BookingPatch{StartTime: ptr("14:30")},
			wantCode: commands.CodeConflict,
		},
		{
			name: "moves to the free barber",
			setup: func(e *env) {
				e.existing(&barber1, "14:00", booking.StatusPending)
			},
			patch:     commands.BookingPatch{StartTime: ptr("14:30"), BarberID: &barber2},
			wantCode:  commands.CodeOK,
			wantStart: "14:30",
			wantEnd:   "15:45",
			wantPrice: 80,
		},
		{
			name: "outside working hours",
			setup: func(e *env) {
				e.store.setHours(time.Friday, schedule.WorkingHoursWindow{OpenMinutes: 9 * 60, CloseMinutes: 12 * 60})
			},
			patch:    commands.BookingPatch{StartTime: ptr("11:00")},
			wantCode: commands.CodeOutOfHours,
		},
		{
			name:      "fewer services shortens and reprices",
			patch:     commands.BookingPatch{ServiceIDs: []uuid.UUID{cut}},
			wantCode:  commands.CodeOK,
			wantStart: "10:00",
			wantEnd:   "10:45",
			wantPrice: 50,
		},
		{
			name:     "expected price is checked against the new total",
			patch:    commands.BookingPatch{ServiceIDs: []uuid.UUID{cut}, ExpectedTotalPrice: ptr(80.0)},
			wantCode: commands.CodePriceMismatch,
		},
		{
			name: "peak pricing applies to the new slot",
			setup: func(e *env) {
				e.settings.values[commands.SettingPricingRules] = `{"peakHours":[{"start":"17:00","end":"20:00","multiplier":1.25}]}`
			},
			patch:     commands.BookingPatch{StartTime: ptr("17:00")},
			wantCode:  commands.CodeOK,
			wantStart: "17:00",
			wantEnd:   "18:15",
			wantPrice: 100,
		},
		{
			name: "new start inside lead time",
			setup: func(e *env) {
				e.clock.Set(time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC))
			},
			patch:    commands.BookingPatch{StartTime: ptr("09:15")},
			wantCode: commands.CodeLeadTimeViolation,
		},
		{
			name: "unchanged start skips lead time",
			setup: func(e *env) {
				e.clock.Set(time.Date(2025, time.March, 14, 9, 50, 0, 0, time.UTC))
			},
			patch:     commands.BookingPatch{ServiceIDs: []uuid.UUID{cut}},
			wantCode:  commands.CodeOK,
			wantStart: "10:00",
			wantEnd:   "10:45",
			wantPrice: 50,
		},
		{
			name:     "unknown barber",
			patch:    commands.BookingPatch{BarberID: ptr(uuid.New())},
			wantCode: commands.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			b := e.ownBooking(booking.StatusConfirmed)
			if tt.setup != nil {
				tt.setup(e)
			}

			got, err := e.commands().UpdateBooking(context.Background(), updateInput(b.ID(), barberActor, tt.patch))

			assert.Equal(t, tt.wantCode, commands.Code(err))
			if tt.wantCode != commands.CodeOK {
				stored := e.store.get(b.ID())
				assert.Equal(t, "10:00", stored.Slot().StartTime())
				assert.Equal(t, 80.0, stored.TotalPrice())
				return
			}
			assert.Equal(t, tt.wantStart, got.Slot().StartTime())
			assert.Equal(t, tt.wantEnd, got.Slot().EndTime())
			assert.Equal(t, tt.wantPrice, got.TotalPrice())
			assert.Empty(t, e.publisher.ofKind(shared.FactStatusChanged))
		})
	}
}

func TestUpdateBooking_GeneralBookingChecksGeneralOnly(t *testing.T) {
	e := newEnv()
	b := builder.NewBookingBuilder().WithoutBarber().WithStatus(booking.StatusPending).BuildDomain()
	e.store.put(b)
	e.existing(&barber1, "12:00", booking.StatusConfirmed)

	got, err := e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), adminActor, commands.BookingPatch{StartTime: ptr("12:00")}))
	require.NoError(t, err)
	assert.Nil(t, got.BarberID())

	e.existing(nil, "15:00", booking.StatusPending)
	_, err = e.commands().UpdateBooking(context.Background(),
		updateInput(b.ID(), adminActor, commands.BookingPatch{StartTime: ptr("14:30")}))
	assert.Equal(t, commands.CodeConflict, commands.Code(err))
}
