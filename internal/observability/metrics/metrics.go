package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

// SchedulingMetrics exposes counters for booking outcomes, planner
// operations and outbox delivery.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	cancellations     prometheus.Counter
	plannerSlotsTotal *prometheus.CounterVec
	outboxTotal       *prometheus.CounterVec
	opLatency         *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counsel",
			Subsystem: "ledger",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "counsel",
			Subsystem: "ledger",
			Name:      "cancellations_total",
			Help:      "Bookings cancelled",
		}),
		plannerSlotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counsel",
			Subsystem: "planner",
			Name:      "slots_total",
			Help:      "Slots touched by bulk planner operations",
		}, []string{"operation"}),
		outboxTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "counsel",
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events handled by the deliverer",
		}, []string{"status"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "counsel",
			Subsystem: "service",
			Name:      "operation_seconds",
			Help:      "Latency of scheduling operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellations, m.plannerSlotsTotal, m.outboxTotal, m.opLatency)
	return m
}

// Outcome maps a booking error to a low-cardinality label.
func Outcome(err error) string {
	var vErr *domain.ValidationError
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, store.ErrSlotFull):
		return "full"
	case errors.Is(err, store.ErrSlotBlacked):
		return "blacked"
	case errors.Is(err, store.ErrDailyLimit):
		return "daily_limit"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.As(err, &vErr):
		return "invalid"
	case errors.Is(err, store.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func (m *SchedulingMetrics) ObserveBooking(err error) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(Outcome(err)).Inc()
}

func (m *SchedulingMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

func (m *SchedulingMetrics) ObservePlanner(operation string, slots int) {
	if m == nil || slots <= 0 {
		return
	}
	m.plannerSlotsTotal.WithLabelValues(operation).Add(float64(slots))
}

func (m *SchedulingMetrics) ObserveOutbox(status string) {
	if m == nil {
		return
	}
	m.outboxTotal.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.opLatency.WithLabelValues(operation).Observe(seconds)
}
