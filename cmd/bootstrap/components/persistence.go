package components

import (
	"log/slog"

	"salon-booking/internal/infra/cache"
	"salon-booking/internal/infra/db"
	"salon-booking/internal/infra/repository"
	"salon-booking/internal/infra/uow"
	"salon-booking/internal/pkg/config"
	"salon-booking/internal/usecase/queries"
	"salon-booking/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readModule,
	repositoryModule,
)

var baseOption = fx.Provide(
	NewDBTX,
)

var readModule = fx.Module("persistence/read",
	fx.Provide(
		fx.Annotate(
			repository.NewBookingRepository,
			fx.As(new(queries.BookingReader)),
		),
		fx.Annotate(
			repository.NewStaffRepository,
			fx.As(new(queries.StaffChecker)),
		),
		NewSettingsStore,
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
		fx.Annotate(
			repository.NewNotificationRepository,
			fx.As(new(shared.NotificationRepository)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

// NewSettingsStore puts the redis cache in front of tenant_settings when redis is configured.
func NewSettingsStore(cfg config.Config, dbtx db.DBTX, client *redis.Client, logger *slog.Logger) shared.SettingsStore {
	store := repository.NewSettingsRepository(dbtx, logger)
	if client == nil {
		return store
	}
	return cache.NewSettingsCache(store, client, cfg.Redis.SettingsTTL, logger)
}
