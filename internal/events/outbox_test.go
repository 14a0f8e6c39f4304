package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
	"counsel/backend/internal/store/memory"
)

type fakeOutbox struct {
	fetchFn func(ctx context.Context, limit int) ([]domain.Event, error)
	markFn  func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (f *fakeOutbox) FetchPending(ctx context.Context, limit int) ([]domain.Event, error) {
	if f.fetchFn == nil {
		panic("FetchPending not configured")
	}
	return f.fetchFn(ctx, limit)
}

func (f *fakeOutbox) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.markFn == nil {
		panic("MarkDelivered not configured")
	}
	return f.markFn(ctx, id)
}

type countingMetrics map[string]int

func (c countingMetrics) ObserveOutbox(status string) { c[status]++ }

func appendEvents(t *testing.T, st *memory.Store, n int) []domain.Event {
	t.Helper()
	out := make([]domain.Event, 0, n)
	err := st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for i := 0; i < n; i++ {
			ev, err := domain.NewEvent("c1", domain.EventSlotCreated, map[string]int{"n": i})
			if err != nil {
				return err
			}
			if err := tx.AppendEvent(ctx, ev); err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestDrain_DeliversAndMarks(t *testing.T) {
	st := memory.New()
	appended := appendEvents(t, st, 3)

	var seen []uuid.UUID
	metrics := countingMetrics{}
	d := NewDeliverer(st, HandlerFunc(func(ctx context.Context, event domain.Event) error {
		seen = append(seen, event.ID)
		return nil
	}), nil).WithBatchSize(2).WithMetrics(metrics)

	assert.Equal(t, 2, d.Drain(context.Background()))
	assert.Equal(t, 1, d.Drain(context.Background()))
	assert.Equal(t, 0, d.Drain(context.Background()))

	require.Len(t, seen, 3)
	for i, ev := range appended {
		assert.Equal(t, ev.ID, seen[i])
	}
	assert.Equal(t, 3, metrics["published"])
}

func TestDrain_FailedEventStaysPending(t *testing.T) {
	st := memory.New()
	appended := appendEvents(t, st, 2)

	fail := true
	d := NewDeliverer(st, HandlerFunc(func(ctx context.Context, event domain.Event) error {
		if event.ID == appended[0].ID && fail {
			return errors.New("broker down")
		}
		return nil
	}), nil)

	assert.Equal(t, 1, d.Drain(context.Background()))

	pending, err := st.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, appended[0].ID, pending[0].ID)

	fail = false
	assert.Equal(t, 1, d.Drain(context.Background()))
}

func TestDrain_FetchErrorIsLogged(t *testing.T) {
	d := NewDeliverer(&fakeOutbox{
		fetchFn: func(ctx context.Context, limit int) ([]domain.Event, error) {
			return nil, store.Unavailable("fetch outbox", errors.New("conn refused"))
		},
	}, HandlerFunc(func(ctx context.Context, event domain.Event) error {
		t.Fatalf("handler must not run")
		return nil
	}), nil)

	assert.Equal(t, 0, d.Drain(context.Background()))
}

func TestDrain_AlreadyDeliveredNotCounted(t *testing.T) {
	ev, err := domain.NewEvent("c1", domain.EventBookingCreated, json.RawMessage(`{}`))
	require.NoError(t, err)

	d := NewDeliverer(&fakeOutbox{
		fetchFn: func(ctx context.Context, limit int) ([]domain.Event, error) {
			assert.Equal(t, 50, limit)
			return []domain.Event{ev}, nil
		},
		markFn: func(ctx context.Context, id uuid.UUID) (bool, error) {
			return false, nil
		},
	}, HandlerFunc(func(ctx context.Context, event domain.Event) error { return nil }), nil)

	assert.Equal(t, 0, d.Drain(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDeliverer(memory.New(), LogHandler(nil), nil)
	assert.NoError(t, d.Run(ctx))
}
