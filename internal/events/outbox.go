package events

import (
	"context"
	"log/slog"
	"time"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

// Handler emits one outbox event downstream. Delivery is at least once, so
// handlers may see the same event more than once.
type Handler interface {
	Handle(ctx context.Context, event domain.Event) error
}

type HandlerFunc func(ctx context.Context, event domain.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Metrics is satisfied by *metrics.SchedulingMetrics.
type Metrics interface {
	ObserveOutbox(status string)
}

// Deliverer polls the outbox and hands pending events to the handler.
type Deliverer struct {
	outbox    store.Outbox
	handler   Handler
	metrics   Metrics
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

func NewDeliverer(outbox store.Outbox, handler Handler, logger *slog.Logger) *Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deliverer{
		outbox:    outbox,
		handler:   handler,
		logger:    logger.With("component", "outbox"),
		batchSize: 50,
		interval:  2 * time.Second,
	}
}

func (d *Deliverer) WithBatchSize(size int) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Deliverer) WithMetrics(m Metrics) *Deliverer {
	d.metrics = m
	return d
}

// Run drains the outbox every interval until ctx is cancelled.
func (d *Deliverer) Run(ctx context.Context) error {
	if d.outbox == nil || d.handler == nil {
		return nil
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain delivers one batch and returns how many events were marked
// delivered. Failed events stay pending for the next pass.
func (d *Deliverer) Drain(ctx context.Context) int {
	pending, err := d.outbox.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return 0
	}

	delivered := 0
	for _, event := range pending {
		if err := d.handler.Handle(ctx, event); err != nil {
			d.observe("failed")
			d.logger.Error("outbox delivery failed", "error", err, "event_id", event.ID.String(), "type", string(event.Type))
			continue
		}
		ok, err := d.outbox.MarkDelivered(ctx, event.ID)
		if err != nil {
			d.logger.Error("failed to mark outbox delivered", "error", err, "event_id", event.ID.String())
			continue
		}
		if ok {
			delivered++
			d.observe("published")
			d.logger.Debug("outbox delivered", "event_id", event.ID.String(), "type", string(event.Type))
		}
	}
	return delivered
}

func (d *Deliverer) observe(status string) {
	if d.metrics != nil {
		d.metrics.ObserveOutbox(status)
	}
}

// LogHandler writes events to the logger. It stands in for a broker when
// none is configured.
func LogHandler(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return HandlerFunc(func(ctx context.Context, event domain.Event) error {
		logger.InfoContext(ctx, "scheduling event",
			"event_id", event.ID.String(),
			"provider_id", event.ProviderID,
			"type", string(event.Type),
			"payload", string(event.Payload),
		)
		return nil
	})
}
