package repository

import (
	"context"
	"log/slog"

	"salon-booking/internal/infra"
	"salon-booking/internal/infra/db"
	"salon-booking/internal/pkg/pgconv"
	"salon-booking/internal/usecase/shared"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const staffRoleBarber = "barber"

type StaffRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewStaffRepository(dbtx db.DBTX, logger *slog.Logger) *StaffRepository {
	return &StaffRepository{
		db:     dbtx,
		logger: logger,
	}
}

func (r *StaffRepository) ActiveBarbers(ctx context.Context, tenantID, shopID uuid.UUID) ([]shared.StaffSnapshot, error) {
	query, args, err := psql.Select("user_id", "role").
		From("shop_staff").
		Where(sq.Eq{
			"tenant_id": tenantID,
			"shop_id":   shopID,
			"is_active": true,
			"role":      staffRoleBarber,
		}).
		OrderBy("user_id ASC").
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build barbers query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to load barbers", err)
	}

	staff, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.StaffSnapshot, error) {
		var s shared.StaffSnapshot
		err := row.Scan(&s.UserID, &s.Role)
		return s, err
	})
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan barbers", err)
	}
	return staff, nil
}

func (r *StaffRepository) IsActiveStaff(ctx context.Context, tenantID, shopID, userID uuid.UUID) (bool, error) {
	query, args, err := psql.Select("1").
		From("shop_staff").
		Where(sq.Eq{
			"tenant_id": tenantID,
			"shop_id":   shopID,
			"user_id":   userID,
			"is_active": true,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build staff query", err)
	}

	var one int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if pgconv.IsNoRows(err) {
			return false, nil
		}
		return false, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to check staff membership", err)
	}
	return true, nil
}
