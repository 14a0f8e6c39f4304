package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

func TestSchedulingMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveBooking(nil)
	m.ObserveBooking(nil)
	m.ObserveBooking(fmt.Errorf("book: %w", store.ErrSlotFull))
	m.ObserveCancellation()
	m.ObservePlanner("copy_week", 4)
	m.ObservePlanner("copy_week", 0)
	m.ObserveOutbox("published")
	m.ObserveLatency("book", 0.01)

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("booked")); got != 2 {
		t.Fatalf("booked = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("full")); got != 1 {
		t.Fatalf("full = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cancellations); got != 1 {
		t.Fatalf("cancellations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.plannerSlotsTotal.WithLabelValues("copy_week")); got != 4 {
		t.Fatalf("copy_week = %v, want 4", got)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "booked"},
		{store.ErrSlotBlacked, "blacked"},
		{store.ErrDailyLimit, "daily_limit"},
		{store.ErrNotFound, "not_found"},
		{domain.Invalid("subject_id is required"), "invalid"},
		{store.Unavailable("op", errors.New("boom")), "unavailable"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Fatalf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSchedulingMetricsNilSafe(t *testing.T) {
	var m *SchedulingMetrics
	m.ObserveBooking(nil)
	m.ObserveCancellation()
	m.ObservePlanner("clear_week", 1)
	m.ObserveOutbox("failed")
	m.ObserveLatency("book", 0.1)
}
