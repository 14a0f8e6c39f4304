package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

type memTx struct {
	s    *Store
	undo []func()
	held map[string]func()
}

var _ store.Tx = (*memTx)(nil)

func (t *memTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) releaseLocks() {
	for key, release := range t.held {
		release()
		delete(t.held, key)
	}
}

func (t *memTx) Lock(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	release, err := t.s.locks.acquire(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = release
	return nil
}

func (t *memTx) GetSlot(ctx context.Context, slotID uuid.UUID) (domain.Slot, error) {
	return t.s.GetSlot(ctx, slotID)
}

func (t *memTx) ListSlots(ctx context.Context, f store.SlotFilter) ([]domain.Slot, error) {
	return t.s.ListSlots(ctx, f)
}

func (t *memTx) GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error) {
	return t.s.GetBooking(ctx, bookingID)
}

func (t *memTx) ListBookingsForSlot(ctx context.Context, slotID uuid.UUID) ([]domain.Booking, error) {
	return t.s.ListBookingsForSlot(ctx, slotID)
}

func (t *memTx) ListVacations(ctx context.Context, providerID string) ([]domain.VacationRange, error) {
	return t.s.ListVacations(ctx, providerID)
}

func (t *memTx) CreateSlot(ctx context.Context, slot domain.Slot) (domain.Slot, error) {
	if slot.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Slot{}, err
		}
		slot.ID = id
	}
	now := t.s.now()
	slot.Date = domain.DateOf(slot.Date)
	slot.Weekday = slot.Date.Weekday().String()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.slots[slot.ID] = slot
	t.undo = append(t.undo, func() { delete(t.s.slots, slot.ID) })
	return slot, nil
}

func (t *memTx) DeleteSlot(ctx context.Context, providerID string, slotID uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	slot, ok := t.s.slots[slotID]
	if !ok || slot.ProviderID != providerID {
		return store.ErrNotFound
	}
	if slot.BookedCount > 0 {
		return store.ErrSlotHasBookings
	}
	delete(t.s.slots, slotID)
	t.undo = append(t.undo, func() { t.s.slots[slotID] = slot })
	return nil
}

func (t *memTx) UpdateCapacity(ctx context.Context, providerID string, slotID uuid.UUID, totalCapacity int) (domain.Slot, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	slot, ok := t.s.slots[slotID]
	if !ok || slot.ProviderID != providerID {
		return domain.Slot{}, store.ErrNotFound
	}
	if slot.BookedCount > 0 {
		return domain.Slot{}, store.ErrSlotHasBookings
	}
	prevCapacity := slot.TotalCapacity
	slot.TotalCapacity = totalCapacity
	slot.UpdatedAt = t.s.now()
	t.s.slots[slotID] = slot
	// Reservations made by other transactions meanwhile are kept, so the
	// restored capacity never drops below booked_count.
	t.undo = append(t.undo, func() {
		if cur, ok := t.s.slots[slotID]; ok {
			cur.TotalCapacity = max(prevCapacity, cur.BookedCount)
			t.s.slots[slotID] = cur
		}
	})
	return slot, nil
}

func (t *memTx) ReserveCapacity(ctx context.Context, slotID uuid.UUID) (domain.Slot, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	slot, ok := t.s.slots[slotID]
	if !ok {
		return domain.Slot{}, store.ErrNotFound
	}
	if slot.Blacked {
		return domain.Slot{}, store.ErrSlotBlacked
	}
	if slot.BookedCount >= slot.TotalCapacity {
		return domain.Slot{}, store.ErrSlotFull
	}
	slot.BookedCount++
	slot.UpdatedAt = t.s.now()
	t.s.slots[slotID] = slot
	t.undo = append(t.undo, func() { t.s.adjustBooked(slotID, -1) })
	return slot, nil
}

func (t *memTx) ReleaseCapacity(ctx context.Context, slotID uuid.UUID) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	slot, ok := t.s.slots[slotID]
	if !ok || slot.BookedCount == 0 {
		return nil
	}
	t.s.adjustBooked(slotID, -1)
	t.undo = append(t.undo, func() { t.s.adjustBooked(slotID, 1) })
	return nil
}

// adjustBooked must be called with s.mu held.
func (s *Store) adjustBooked(slotID uuid.UUID, delta int) {
	slot, ok := s.slots[slotID]
	if !ok {
		return
	}
	slot.BookedCount += delta
	if slot.BookedCount < 0 {
		slot.BookedCount = 0
	}
	slot.UpdatedAt = s.now()
	s.slots[slotID] = slot
}

func (t *memTx) SetBlackout(ctx context.Context, providerID string, r domain.DateRange, blacked bool) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	n := 0
	for id, slot := range t.s.slots {
		if slot.ProviderID != providerID || !r.Contains(slot.Date) {
			continue
		}
		n++
		if slot.Blacked == blacked {
			continue
		}
		slot.Blacked = blacked
		slot.UpdatedAt = t.s.now()
		t.s.slots[id] = slot
		t.undo = append(t.undo, func() {
			if cur, ok := t.s.slots[id]; ok {
				cur.Blacked = !blacked
				t.s.slots[id] = cur
			}
		})
	}
	return n, nil
}

func (t *memTx) DeleteEmptySlots(ctx context.Context, providerID string, r domain.DateRange) (int, int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	deleted, skipped := 0, 0
	for id, slot := range t.s.slots {
		if slot.ProviderID != providerID || !r.Contains(slot.Date) {
			continue
		}
		if slot.BookedCount > 0 {
			skipped++
			continue
		}
		removed := slot
		delete(t.s.slots, id)
		t.undo = append(t.undo, func() { t.s.slots[removed.ID] = removed })
		deleted++
	}
	return deleted, skipped, nil
}

func (t *memTx) CountSubjectBookings(ctx context.Context, subjectID string, date time.Time) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	day := domain.DateOf(date)
	n := 0
	for _, b := range t.s.bookings {
		if b.SubjectID == subjectID && b.Date.Equal(day) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, err
		}
		b.ID = id
	}
	b.Date = domain.DateOf(b.Date)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = t.s.now()
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.slots[b.SlotID]; !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	t.s.bookings[b.ID] = b
	t.undo = append(t.undo, func() { delete(t.s.bookings, b.ID) })
	return b, nil
}

func (t *memTx) DeleteBooking(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[bookingID]
	if !ok || b.SubjectID != subjectID {
		return domain.Booking{}, store.ErrNotFound
	}
	delete(t.s.bookings, bookingID)
	t.undo = append(t.undo, func() { t.s.bookings[b.ID] = b })
	return b, nil
}

func (t *memTx) InsertVacation(ctx context.Context, v domain.VacationRange) (domain.VacationRange, error) {
	if v.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.VacationRange{}, err
		}
		v.ID = id
	}
	v.Start = domain.DateOf(v.Start)
	v.End = domain.DateOf(v.End)
	v.CreatedAt = t.s.now()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.vacations[v.ID] = v
	t.undo = append(t.undo, func() { delete(t.s.vacations, v.ID) })
	return v, nil
}

func (t *memTx) DeleteVacation(ctx context.Context, providerID string, vacationID uuid.UUID) (domain.VacationRange, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	v, ok := t.s.vacations[vacationID]
	if !ok || v.ProviderID != providerID {
		return domain.VacationRange{}, store.ErrNotFound
	}
	delete(t.s.vacations, vacationID)
	t.undo = append(t.undo, func() { t.s.vacations[v.ID] = v })
	return v, nil
}

func (t *memTx) AppendEvent(ctx context.Context, event domain.Event) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.events = append(t.s.events, event)
	id := event.ID
	t.undo = append(t.undo, func() {
		for i := range t.s.events {
			if t.s.events[i].ID == id {
				t.s.events = append(t.s.events[:i], t.s.events[i+1:]...)
				return
			}
		}
	})
	return nil
}
