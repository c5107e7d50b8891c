package shared

import (
	"context"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/schedule"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: read-committed transaction for write operations, retried on serialization failures
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Bookings() BookingRepository
	Catalog() CatalogReader
	Staff() StaffDirectory
	WorkingHours() WorkingHoursReader
	Idempotency() IdempotencyRepository
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	Update(ctx context.Context, b *booking.Booking) error
	// FindByIDForUpdate locks the row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*booking.Booking, error)
	HasOverlap(ctx context.Context, q OverlapQuery) (bool, error)
}

type CatalogReader interface {
	ShopByID(ctx context.Context, tenantID, shopID uuid.UUID) (*ShopSnapshot, error)
	// ServicesByIDs returns the active services of the shop among ids; unknown or inactive ids are omitted.
	ServicesByIDs(ctx context.Context, tenantID, shopID uuid.UUID, ids []uuid.UUID) ([]ServiceSnapshot, error)
}

type StaffDirectory interface {
	// ActiveBarbers lists active staff with the barber role, ordered by user id ascending.
	ActiveBarbers(ctx context.Context, tenantID, shopID uuid.UUID) ([]StaffSnapshot, error)
	IsActiveStaff(ctx context.Context, tenantID, shopID, userID uuid.UUID) (bool, error)
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this request. claimed is false when a live record already exists.
	TryInsert(ctx context.Context, rec IdempotencyRecord) (claimed bool, err error)
	Get(ctx context.Context, tenantID, userID, key uuid.UUID) (*IdempotencyRecord, error)
	MarkCompleted(ctx context.Context, tenantID, userID, key, bookingID uuid.UUID) error
}

type WorkingHoursReader interface {
	WindowsFor(ctx context.Context, tenantID, shopID uuid.UUID, weekday time.Weekday) ([]schedule.WorkingHoursWindow, error)
}

// SettingsStore reads tenant-scoped JSON settings. found is false when the key is absent.
type SettingsStore interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (value []byte, found bool, err error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
