package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"salon-booking/internal/domain/booking"
	"salon-booking/internal/domain/pricing"
	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/infra"
	"salon-booking/internal/infra/db"
	"salon-booking/internal/pkg/pgconv"
	"salon-booking/internal/usecase/queries"
	"salon-booking/internal/usecase/shared"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var bookingColumns = []string{
	"id", "tenant_id", "shop_id", "customer_id", "barber_id",
	"booking_date", "start_time", "end_time", "start_at", "end_at",
	"status", "total_price", "notes", "pricing_context", "created_at", "updated_at",
}

type BookingRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewBookingRepository(dbtx db.DBTX, logger *slog.Logger) *BookingRepository {
	return &BookingRepository{
		db:     dbtx,
		logger: logger,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	pctx, err := encodePricingContext(b.PricingContext())
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to encode pricing context", err)
	}

	slot := b.Slot()
	query, args, err := psql.Insert("bookings").
		Columns(bookingColumns...).
		Values(
			b.ID(), b.TenantID(), b.ShopID(), b.CustomerID(), pgconv.UUIDPtrToPgtype(b.BarberID()),
			slot.Date().Time(), slot.StartTime(), slot.EndTime(), slot.StartAt(), slot.EndAt(),
			b.Status().String(), b.TotalPrice(), pgconv.StringPtrToPgtype(b.Notes()), pctx, b.CreatedAt(), b.UpdatedAt(),
		).
		ToSql()
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking insert", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to insert booking", err)
	}

	return r.insertServiceLines(ctx, b)
}

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	slot := b.Slot()
	query, args, err := psql.Update("bookings").
		SetMap(map[string]any{
			"barber_id":    pgconv.UUIDPtrToPgtype(b.BarberID()),
			"booking_date": slot.Date().Time(),
			"start_time":   slot.StartTime(),
			"end_time":     slot.EndTime(),
			"start_at":     slot.StartAt(),
			"end_at":       slot.EndAt(),
			"status":       b.Status().String(),
			"total_price":  b.TotalPrice(),
			"notes":        pgconv.StringPtrToPgtype(b.Notes()),
			"updated_at":   b.UpdatedAt(),
		}).
		Where(sq.Eq{"id": b.ID(), "tenant_id": b.TenantID()}).
		ToSql()
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking update", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "booking not found", nil)
	}

	if _, err := r.db.Exec(ctx, "DELETE FROM booking_services WHERE booking_id = $1", b.ID()); err != nil {
		return infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to clear booking services", err)
	}
	return r.insertServiceLines(ctx, b)
}

func (r *BookingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*booking.Booking, error) {
	return r.find(ctx, tenantID, id, false)
}

func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*booking.Booking, error) {
	return r.find(ctx, tenantID, id, true)
}

func (r *BookingRepository) HasOverlap(ctx context.Context, q shared.OverlapQuery) (bool, error) {
	builder := psql.Select("1").
		From("bookings").
		Where(sq.Eq{"tenant_id": q.TenantID, "booking_date": q.Date.Time()}).
		Where(sq.NotEq{"status": booking.StatusCancelled.String()}).
		Where(sq.Lt{"start_at": q.EndAt}).
		Where(sq.Gt{"end_at": q.StartAt}).
		Limit(1)

	if q.BarberID != nil {
		builder = builder.Where(sq.Eq{"barber_id": *q.BarberID})
	} else {
		builder = builder.Where(sq.Eq{"shop_id": q.ShopID, "barber_id": nil})
	}
	if q.ExcludeID != nil {
		builder = builder.Where(sq.NotEq{"id": *q.ExcludeID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build overlap query", err)
	}

	var one int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if pgconv.IsNoRows(err) {
			return false, nil
		}
		return false, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to query overlapping bookings", err)
	}
	return true, nil
}

func (r *BookingRepository) find(ctx context.Context, tenantID, id uuid.UUID, lock bool) (*booking.Booking, error) {
	builder := psql.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"id": id, "tenant_id": tenantID})
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking query", err)
	}

	row, err := scanBookingRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to find booking", err)
	}

	serviceIDs, err := r.serviceIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toDomain(serviceIDs)
}

// List pages through bookings in (start_at, id) order.
func (r *BookingRepository) List(ctx context.Context, q queries.ListQuery) ([]*booking.Booking, error) {
	builder := psql.Select(prefixed("b", bookingColumns)...).
		From("bookings b").
		Where(sq.Eq{"b.tenant_id": q.TenantID}).
		OrderBy("b.start_at", "b.id").
		Limit(uint64(max(q.Limit, 1)))

	if q.ShopID != nil {
		builder = builder.Where(sq.Eq{"b.shop_id": *q.ShopID})
	}
	if q.From != nil {
		builder = builder.Where(sq.GtOrEq{"b.booking_date": q.From.Time()})
	}
	if q.To != nil {
		builder = builder.Where(sq.LtOrEq{"b.booking_date": q.To.Time()})
	}
	if q.After != nil {
		builder = builder.Where(sq.Expr("(b.start_at, b.id) > (?, ?)", q.After.StartAt, q.After.ID))
	}
	if q.VisibleTo != nil {
		builder = builder.Where(sq.Or{
			sq.Eq{"b.customer_id": *q.VisibleTo},
			sq.Expr(`EXISTS (SELECT 1 FROM shop_staff s
				WHERE s.tenant_id = b.tenant_id AND s.shop_id = b.shop_id AND s.user_id = ? AND s.is_active)`, *q.VisibleTo),
		})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking list query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to list bookings", err)
	}
	defer rows.Close()

	var scanned []*bookingRow
	for rows.Next() {
		row, err := scanBookingRow(rows)
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan booking", err)
		}
		scanned = append(scanned, row)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to iterate bookings", err)
	}

	ids := make([]uuid.UUID, len(scanned))
	for i, row := range scanned {
		ids[i] = row.ID
	}
	lines, err := r.serviceIDsByBooking(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*booking.Booking, 0, len(scanned))
	for _, row := range scanned {
		b, err := row.toDomain(lines[row.ID])
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to map booking", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *BookingRepository) serviceIDsByBooking(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}

	query, args, err := psql.Select("booking_id", "service_id").
		From("booking_services").
		Where(sq.Eq{"booking_id": bookingIDs}).
		OrderBy("booking_id", "position").
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking services query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to load booking services", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID, serviceID uuid.UUID
		if err := rows.Scan(&bookingID, &serviceID); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan booking service", err)
		}
		out[bookingID] = append(out[bookingID], serviceID)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to iterate booking services", err)
	}
	return out, nil
}

func prefixed(alias string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return out
}

func (r *BookingRepository) serviceIDs(ctx context.Context, bookingID uuid.UUID) ([]uuid.UUID, error) {
	query, args, err := psql.Select("service_id").
		From("booking_services").
		Where(sq.Eq{"booking_id": bookingID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking services query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to load booking services", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan booking services", err)
	}
	return ids, nil
}

func (r *BookingRepository) insertServiceLines(ctx context.Context, b *booking.Booking) error {
	builder := psql.Insert("booking_services").Columns("booking_id", "service_id", "tenant_id", "position")
	for i, serviceID := range b.ServiceIDs() {
		builder = builder.Values(b.ID(), serviceID, b.TenantID(), i)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build booking services insert", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to insert booking services", err)
	}
	return nil
}

type bookingRow struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ShopID         uuid.UUID
	CustomerID     uuid.UUID
	BarberID       pgtype.UUID
	BookingDate    time.Time
	StartTime      string
	EndTime        string
	StartAt        time.Time
	EndAt          time.Time
	Status         string
	TotalPrice     float64
	Notes          pgtype.Text
	PricingContext []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func scanBookingRow(row pgx.Row) (*bookingRow, error) {
	var r bookingRow
	err := row.Scan(
		&r.ID, &r.TenantID, &r.ShopID, &r.CustomerID, &r.BarberID,
		&r.BookingDate, &r.StartTime, &r.EndTime, &r.StartAt, &r.EndAt,
		&r.Status, &r.TotalPrice, &r.Notes, &r.PricingContext, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *bookingRow) toDomain(serviceIDs []uuid.UUID) (*booking.Booking, error) {
	status, err := booking.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}

	var pctx pricing.Context
	if len(r.PricingContext) > 0 {
		if err := json.Unmarshal(r.PricingContext, &pctx); err != nil {
			return nil, err
		}
	}

	date := schedule.NewDate(r.BookingDate.Year(), r.BookingDate.Month(), r.BookingDate.Day())
	return booking.Reconstruct(booking.ReconstructParams{
		ID:             r.ID,
		TenantID:       r.TenantID,
		ShopID:         r.ShopID,
		CustomerID:     r.CustomerID,
		BarberID:       pgconv.UUIDPtrFromPgtype(r.BarberID),
		Slot:           schedule.ReconstructSlot(date, r.StartTime, r.EndTime, r.StartAt, r.EndAt),
		ServiceIDs:     serviceIDs,
		Status:         status,
		TotalPrice:     r.TotalPrice,
		Notes:          pgconv.StringPtrFromPgtype(r.Notes),
		PricingContext: pctx,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}), nil
}

func encodePricingContext(pctx pricing.Context) ([]byte, error) {
	if pctx.IsZero() {
		return nil, nil
	}
	return json.Marshal(pctx)
}
