package events

import (
	"context"
	"encoding/json"
	"fmt"

	"salon-booking/internal/pkg/clock"
	"salon-booking/internal/usecase/shared"
)

// Outbox queues booking facts as notification jobs for an external delivery worker.
type Outbox struct {
	repo  shared.NotificationRepository
	clock clock.Clock
}

func NewOutbox(repo shared.NotificationRepository, clk clock.Clock) *Outbox {
	return &Outbox{repo: repo, clock: clk}
}

func (o *Outbox) Register(bus *Bus) {
	bus.Subscribe(shared.FactBookingCreated, o.handle)
	bus.Subscribe(shared.FactStatusChanged, o.handle)
}

func (o *Outbox) handle(ctx context.Context, fact shared.Fact) error {
	var topic string
	switch f := fact.(type) {
	case shared.BookingCreated:
		topic = bookingTopic(f.TenantID.String(), f.BookingID.String())
	case shared.StatusChanged:
		topic = bookingTopic(f.TenantID.String(), f.BookingID.String())
	default:
		return nil
	}

	payload, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", fact.Kind(), err)
	}
	return o.repo.CreateJob(ctx, string(fact.Kind()), topic, payload, o.clock.Now())
}

func bookingTopic(tenantID, bookingID string) string {
	return "tenant/" + tenantID + "/bookings/" + bookingID
}
