package events

import (
	"context"
	"log/slog"

	"salon-booking/internal/usecase/shared"
)

// AuditLogger writes booking facts to the structured log.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With("component", "audit")}
}

func (a *AuditLogger) Register(bus *Bus) {
	bus.Subscribe(shared.FactBookingCreated, a.handle)
	bus.Subscribe(shared.FactStatusChanged, a.handle)
}

func (a *AuditLogger) handle(ctx context.Context, fact shared.Fact) error {
	switch f := fact.(type) {
	case shared.BookingCreated:
		attrs := []any{
			"booking_id", f.BookingID.String(),
			"tenant_id", f.TenantID.String(),
			"shop_id", f.ShopID.String(),
			"customer_id", f.CustomerID.String(),
			"start_at", f.StartAt,
			"end_at", f.EndAt,
			"total_price", f.TotalPrice,
			"duration_ms", f.Duration.Milliseconds(),
		}
		if f.BarberID != nil {
			attrs = append(attrs, "barber_id", f.BarberID.String())
		}
		a.logger.InfoContext(ctx, "booking created", attrs...)
	case shared.StatusChanged:
		a.logger.InfoContext(ctx, "booking status changed",
			"booking_id", f.BookingID.String(),
			"tenant_id", f.TenantID.String(),
			"from", f.From,
			"to", f.To,
			"actor_class", f.ActorClass,
			"actor_id", f.ActorID.String(),
		)
	}
	return nil
}
