package events

import (
	"context"

	"salon-booking/internal/usecase/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CreateDuration    *prometheus.HistogramVec
	StatusTransitions *prometheus.CounterVec
	Operations        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CreateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "booking_create_duration_seconds",
			Help:    "Duration of booking creation by outcome code",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"outcome"}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_status_transitions_total",
			Help: "Booking status transitions by actor class",
		}, []string{"from", "to", "actor"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking operations by result code",
		}, []string{"op", "code"}),
	}
}

func (m *Metrics) Register(bus *Bus) {
	bus.Subscribe(shared.FactOperationObserved, m.handle)
	bus.Subscribe(shared.FactStatusChanged, m.handle)
}

func (m *Metrics) handle(_ context.Context, fact shared.Fact) error {
	switch f := fact.(type) {
	case shared.OperationObserved:
		m.Operations.WithLabelValues(f.Operation, f.Code).Inc()
		if f.Operation == shared.OperationCreate {
			m.CreateDuration.WithLabelValues(f.Code).Observe(f.Duration.Seconds())
		}
	case shared.StatusChanged:
		m.StatusTransitions.WithLabelValues(f.From, f.To, f.ActorClass).Inc()
	}
	return nil
}
