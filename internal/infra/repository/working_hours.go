package repository

import (
	"context"
	"log/slog"
	"time"

	"salon-booking/internal/domain/schedule"
	"salon-booking/internal/infra"
	"salon-booking/internal/infra/db"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WorkingHoursRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewWorkingHoursRepository(dbtx db.DBTX, logger *slog.Logger) *WorkingHoursRepository {
	return &WorkingHoursRepository{
		db:     dbtx,
		logger: logger,
	}
}

// WindowsFor returns the configured windows for the weekday; none means the shop has no rows for it.
func (r *WorkingHoursRepository) WindowsFor(ctx context.Context, tenantID, shopID uuid.UUID, weekday time.Weekday) ([]schedule.WorkingHoursWindow, error) {
	query, args, err := psql.Select("open_minutes", "close_minutes", "open_24h").
		From("shop_working_hours").
		Where(sq.Eq{
			"tenant_id": tenantID,
			"shop_id":   shopID,
			"weekday":   int(weekday),
		}).
		OrderBy("open_minutes").
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build working hours query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to load working hours", err)
	}

	windows, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schedule.WorkingHoursWindow, error) {
		var w schedule.WorkingHoursWindow
		err := row.Scan(&w.OpenMinutes, &w.CloseMinutes, &w.Open24h)
		return w, err
	})
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan working hours", err)
	}
	return windows, nil
}
