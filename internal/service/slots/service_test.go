package slots

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
	"counsel/backend/internal/store/memory"
)

func createInput(provider, date, start, end string, capacity int) CreateInput {
	return CreateInput{
		ProviderID:    provider,
		Date:          domain.MustDate(date),
		StartTime:     domain.MustClock(start),
		EndTime:       domain.MustClock(end),
		TotalCapacity: capacity,
	}
}

func TestCreate_ValidatesRangeAndCapacity(t *testing.T) {
	svc := NewService(memory.New(), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{name: "end before start", in: createInput("c1", "2025-03-10", "10:00", "09:00", 1), want: domain.ErrInvalidRange},
		{name: "empty interval", in: createInput("c1", "2025-03-10", "10:00", "10:00", 1), want: domain.ErrInvalidRange},
		{name: "zero capacity", in: createInput("c1", "2025-03-10", "09:00", "10:00", 0), want: domain.ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := svc.Create(ctx, createInput(" ", "2025-03-10", "09:00", "10:00", 1))
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *domain.ValidationError", err)
	}
}

func TestCreate_AllowsDuplicatesAndDerivesWeekday(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	in := createInput("c1", "2025-03-10", "09:00", "10:00", 2)
	a, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	b, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create duplicate error: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("duplicate slots share id %s", a.ID)
	}
	if a.Weekday != "Monday" || a.BookedCount != 0 || a.Blacked {
		t.Fatalf("slot = %+v", a)
	}

	events, err := st.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("FetchPending error: %v", err)
	}
	if len(events) != 2 || events[0].Type != domain.EventSlotCreated {
		t.Fatalf("events = %+v", events)
	}
}

func TestCreate_InsideVacationStartsBlacked(t *testing.T) {
	st := memory.New()
	err := st.InTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		_, err := tx.InsertVacation(ctx, domain.VacationRange{
			ProviderID: "c1",
			Start:      domain.MustDate("2025-03-10"),
			End:        domain.MustDate("2025-03-14"),
		})
		return err
	})
	if err != nil {
		t.Fatalf("InsertVacation error: %v", err)
	}

	svc := NewService(st, nil)
	inside, err := svc.Create(context.Background(), createInput("c1", "2025-03-14", "09:00", "10:00", 1))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !inside.Blacked {
		t.Fatalf("slot inside vacation not blacked")
	}
	outside, err := svc.Create(context.Background(), createInput("c1", "2025-03-15", "09:00", "10:00", 1))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if outside.Blacked {
		t.Fatalf("slot outside vacation blacked")
	}
	other, err := svc.Create(context.Background(), createInput("c2", "2025-03-12", "09:00", "10:00", 1))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if other.Blacked {
		t.Fatalf("vacation leaked to another provider")
	}
}

func TestListAvailable_HidesFullAndBlacked(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	open, _ := svc.Create(ctx, createInput("c1", "2025-03-10", "09:00", "10:00", 1))
	full, _ := svc.Create(ctx, createInput("c1", "2025-03-10", "11:00", "12:00", 1))
	blacked, _ := svc.Create(ctx, createInput("c1", "2025-03-11", "09:00", "10:00", 1))

	err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.ReserveCapacity(ctx, full.ID); err != nil {
			return err
		}
		_, err := tx.SetBlackout(ctx, "c1", domain.DateRange{From: blacked.Date, To: blacked.Date}, true)
		return err
	})
	if err != nil {
		t.Fatalf("setup error: %v", err)
	}

	all, err := svc.List(ctx, "c1", nil)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}

	available, err := svc.ListAvailable(ctx, "c1", nil)
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if len(available) != 1 || available[0].ID != open.ID {
		t.Fatalf("available = %+v", available)
	}

	r := domain.DateRange{From: domain.MustDate("2025-03-11"), To: domain.MustDate("2025-03-11")}
	ranged, err := svc.List(ctx, "c1", &r)
	if err != nil {
		t.Fatalf("List range error: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != blacked.ID {
		t.Fatalf("ranged = %+v", ranged)
	}

	bad := domain.DateRange{From: domain.MustDate("2025-03-12"), To: domain.MustDate("2025-03-11")}
	if _, err := svc.List(ctx, "c1", &bad); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("error = %v, want %v", err, domain.ErrInvalidRange)
	}
}

func TestDelete(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	free, _ := svc.Create(ctx, createInput("c1", "2025-03-10", "09:00", "10:00", 2))
	booked, _ := svc.Create(ctx, createInput("c1", "2025-03-10", "10:00", "11:00", 2))
	err := st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.ReserveCapacity(ctx, booked.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ReserveCapacity error: %v", err)
	}

	if err := svc.Delete(ctx, "c2", free.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign delete error = %v, want %v", err, store.ErrNotFound)
	}
	if err := svc.Delete(ctx, "c1", booked.ID); !errors.Is(err, store.ErrSlotHasBookings) {
		t.Fatalf("booked delete error = %v, want %v", err, store.ErrSlotHasBookings)
	}
	if err := svc.Delete(ctx, "c1", free.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := svc.Get(ctx, free.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get after delete error = %v, want %v", err, store.ErrNotFound)
	}
	if err := svc.Delete(ctx, "c1", uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown delete error = %v, want %v", err, store.ErrNotFound)
	}
}

func TestUpdateCapacity(t *testing.T) {
	st := memory.New()
	svc := NewService(st, nil)
	ctx := context.Background()

	slot, _ := svc.Create(ctx, createInput("c1", "2025-03-10", "09:00", "10:00", 2))

	if _, err := svc.UpdateCapacity(ctx, "c1", slot.ID, 0); !errors.Is(err, domain.ErrInvalidCapacity) {
		t.Fatalf("error = %v, want %v", err, domain.ErrInvalidCapacity)
	}

	updated, err := svc.UpdateCapacity(ctx, "c1", slot.ID, 5)
	if err != nil {
		t.Fatalf("UpdateCapacity error: %v", err)
	}
	if updated.TotalCapacity != 5 || updated.StartTime != slot.StartTime {
		t.Fatalf("updated = %+v", updated)
	}

	err = st.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.ReserveCapacity(ctx, slot.ID)
		return err
	})
	if err != nil {
		t.Fatalf("ReserveCapacity error: %v", err)
	}
	if _, err := svc.UpdateCapacity(ctx, "c1", slot.ID, 3); !errors.Is(err, store.ErrSlotHasBookings) {
		t.Fatalf("error = %v, want %v", err, store.ErrSlotHasBookings)
	}
}
