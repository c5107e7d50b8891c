package repository

import (
	"context"
	"log/slog"

	"salon-booking/internal/infra"
	"salon-booking/internal/infra/db"
	"salon-booking/internal/pkg/pgconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type SettingsRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewSettingsRepository(dbtx db.DBTX, logger *slog.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:     dbtx,
		logger: logger,
	}
}

func (r *SettingsRepository) Get(ctx context.Context, tenantID uuid.UUID, key string) ([]byte, bool, error) {
	query, args, err := psql.Select("value").
		From("tenant_settings").
		Where(sq.Eq{"tenant_id": tenantID, "key": key}).
		ToSql()
	if err != nil {
		return nil, false, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build settings query", err)
	}

	var value []byte
	if err := r.db.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if pgconv.IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to read tenant setting", err)
	}
	return value, true, nil
}
