// Package memory is an in-process implementation of store.Store. Every
// primitive is atomic under one mutex; transactions roll back through an undo
// log and serialize on keyed locks.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	slots     map[uuid.UUID]domain.Slot
	bookings  map[uuid.UUID]domain.Booking
	vacations map[uuid.UUID]domain.VacationRange
	events    []domain.Event

	locks *keyedLocks
	now   func() time.Time
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Outbox = (*Store)(nil)
)

func New() *Store {
	return &Store{
		slots:     make(map[uuid.UUID]domain.Slot),
		bookings:  make(map[uuid.UUID]domain.Booking),
		vacations: make(map[uuid.UUID]domain.VacationRange),
		locks:     newKeyedLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{s: s, held: make(map[string]func())}
	err := fn(ctx, tx)
	if err != nil {
		tx.rollback()
	}
	tx.releaseLocks()
	return err
}

func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return domain.Slot{}, store.ErrNotFound
	}
	return slot, nil
}

func (s *Store) ListSlots(ctx context.Context, f store.SlotFilter) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Slot, 0)
	for _, slot := range s.slots {
		if slot.ProviderID != f.ProviderID {
			continue
		}
		if f.Range != nil && !f.Range.Contains(slot.Date) {
			continue
		}
		if f.AvailableOnly && !slot.Bookable() {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBookingsForSlot(ctx context.Context, slotID uuid.UUID) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.SlotID == slotID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) ListVacations(ctx context.Context, providerID string) ([]domain.VacationRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VacationRange, 0)
	for _, v := range s.vacations {
		if v.ProviderID == providerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) FetchPending(ctx context.Context, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := max(0, min(limit, len(s.events)))
	out := make([]domain.Event, n)
	copy(out, s.events[:n])
	return out, nil
}

// MarkDelivered drops the event; only pending events are kept in memory.
func (s *Store) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = slices.Delete(s.events, i, i+1)
			return true, nil
		}
	}
	return false, nil
}
