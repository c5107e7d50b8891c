package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"salon-booking/internal/infra/db"
	"salon-booking/internal/infra/repository"
	"salon-booking/internal/pkg/config"

	"go.uber.org/fx"
)

var IdempotencyModule = fx.Module("idempotency",
	fx.Invoke(StartIdempotencySweeper),
)

// StartIdempotencySweeper periodically drops idempotency keys past their replay window.
func StartIdempotencySweeper(lc fx.Lifecycle, cfg config.Config, dbtx db.DBTX, logger *slog.Logger) {
	interval := cfg.Booking.IdempotencySweep
	if interval <= 0 {
		return
	}
	repo := repository.NewIdempotencyRepository(dbtx, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := repo.DeleteExpired(ctx)
						if err != nil {
							logger.Warn("idempotency sweep failed", "error", err.Error())
							continue
						}
						if n > 0 {
							logger.Debug("idempotency keys expired", "deleted", n)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
