package repository

import (
	"context"
	"log/slog"

	"salon-booking/internal/infra"
	"salon-booking/internal/infra/db"
	"salon-booking/internal/usecase/shared"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CatalogRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewCatalogRepository(dbtx db.DBTX, logger *slog.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:     dbtx,
		logger: logger,
	}
}

func (r *CatalogRepository) ShopByID(ctx context.Context, tenantID, shopID uuid.UUID) (*shared.ShopSnapshot, error) {
	query, args, err := psql.Select("id", "tenant_id", "name", "COALESCE(timezone, '')").
		From("shops").
		Where(sq.Eq{"id": shopID, "tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build shop query", err)
	}

	var shop shared.ShopSnapshot
	if err := r.db.QueryRow(ctx, query, args...).Scan(&shop.ID, &shop.TenantID, &shop.Name, &shop.Timezone); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to find shop", err)
	}
	return &shop, nil
}

func (r *CatalogRepository) ServicesByIDs(ctx context.Context, tenantID, shopID uuid.UUID, ids []uuid.UUID) ([]shared.ServiceSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := psql.Select("id", "shop_id", "name", "duration_minutes", "price::float8").
		From("services").
		Where(sq.Eq{
			"tenant_id": tenantID,
			"shop_id":   shopID,
			"is_active": true,
			"id":        ids,
		}).
		ToSql()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to build services query", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.ClassifyPgError(err), "failed to load services", err)
	}

	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.ServiceSnapshot, error) {
		var s shared.ServiceSnapshot
		err := row.Scan(&s.ID, &s.ShopID, &s.Name, &s.DurationMinutes, &s.Price)
		return s, err
	})
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan services", err)
	}
	return services, nil
}
