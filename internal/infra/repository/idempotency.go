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
	"github.com/jackc/pgx/v5/pgtype"
)

type IdempotencyRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewIdempotencyRepository(dbtx db.DBTX, logger *slog.Logger) *IdempotencyRepository {
	return &IdempotencyRepository{
		db:     dbtx,
		logger: logger,
	}
}

// TryInsert claims the key. An expired record is taken over in place; a live one is left untouched.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, rec shared.IdempotencyRecord) (bool, error) {
	query, args, err := psql.Insert("idempotency_keys").
		Columns("tenant_id", "user_id", "key", "endpoint", "request_hash", "status", "expires_at", "created_at", "updated_at").
		Values(rec.TenantID, rec.UserID, rec.Key, rec.Endpoint, rec.RequestHash, shared.IdempotencyProcessing, rec.ExpiresAt, rec.CreatedAt, rec.CreatedAt).
		Suffix(`ON CONFLICT (tenant_id, user_id, key) DO UPDATE SET
			endpoint = EXCLUDED.endpoint,
			request_hash = EXCLUDED.request_hash,
			status = EXCLUDED.status,
			result_booking_id = NULL,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		WHERE idempotency_keys.expires_at <= EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build idempotency key insert", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to insert idempotency key", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *IdempotencyRepository) Get(ctx context.Context, tenantID, userID, key uuid.UUID) (*shared.IdempotencyRecord, error) {
	query, args, err := psql.Select(
		"tenant_id", "user_id", "key", "endpoint", "request_hash", "status",
		"result_booking_id", "expires_at", "created_at",
	).
		From("idempotency_keys").
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID, "key": key}).
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build idempotency key query", err)
	}

	var (
		rec    shared.IdempotencyRecord
		result pgtype.UUID
	)
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&rec.TenantID, &rec.UserID, &rec.Key, &rec.Endpoint, &rec.RequestHash, &rec.Status,
		&result, &rec.ExpiresAt, &rec.CreatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "idempotency key not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to get idempotency key", err)
	}
	rec.ResultBookingID = pgconv.UUIDPtrFromPgtype(result)
	return &rec, nil
}

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, tenantID, userID, key, bookingID uuid.UUID) error {
	query, args, err := psql.Update("idempotency_keys").
		Set("status", shared.IdempotencyCompleted).
		Set("result_booking_id", bookingID).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"tenant_id": tenantID, "user_id": userID, "key": key}).
		ToSql()
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build idempotency key update", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to complete idempotency key", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "idempotency key not found", nil)
	}
	return nil
}

// DeleteExpired removes records whose replay window has passed.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query, args, err := psql.Delete("idempotency_keys").
		Where(sq.Expr("expires_at <= now()")).
		ToSql()
	if err != nil {
		return 0, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build idempotency key cleanup", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
