package bootstrap

import (
	"context"
	"log/slog"

	"salon-booking/internal/infra/events"
	"salon-booking/internal/pkg/config"
	"salon-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var EventsModule = fx.Module("events",
	fx.Provide(
		NewEventBus,
		func(bus *events.Bus) shared.FactPublisher { return bus },
		events.NewAuditLogger,
		events.NewMetrics,
		events.NewOutbox,
	),
	fx.Invoke(RegisterSubscribers),
)

func NewEventBus(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) *events.Bus {
	bus := events.NewBus(cfg.Booking.EventBuffer, logger)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			bus.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return bus.Stop(ctx)
		},
	})

	return bus
}

func RegisterSubscribers(bus *events.Bus, audit *events.AuditLogger, metrics *events.Metrics, outbox *events.Outbox) {
	audit.Register(bus)
	metrics.Register(bus)
	outbox.Register(bus)
}
