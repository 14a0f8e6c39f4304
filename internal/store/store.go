package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
)

type SlotFilter struct {
	ProviderID string
	// Range is optional; nil lists every date.
	Range *domain.DateRange
	// AvailableOnly drops blacked and fully booked slots.
	AvailableOnly bool
}

// Reader holds the read side shared by the store and its transactions.
type Reader interface {
	GetSlot(ctx context.Context, slotID uuid.UUID) (domain.Slot, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]domain.Slot, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (domain.Booking, error)
	ListBookingsForSlot(ctx context.Context, slotID uuid.UUID) ([]domain.Booking, error)
	ListVacations(ctx context.Context, providerID string) ([]domain.VacationRange, error)
}

// Tx is the write side. Everything done through one Tx commits or rolls back
// together.
type Tx interface {
	Reader

	// Lock takes an exclusive lock on key held until the transaction ends.
	// Taking the same key twice in one transaction is a no-op.
	Lock(ctx context.Context, key string) error

	CreateSlot(ctx context.Context, slot domain.Slot) (domain.Slot, error)
	DeleteSlot(ctx context.Context, providerID string, slotID uuid.UUID) error
	UpdateCapacity(ctx context.Context, providerID string, slotID uuid.UUID, totalCapacity int) (domain.Slot, error)
	// ReserveCapacity increments booked_count only if the slot is not blacked
	// and has room; this is the single guard against over-booking.
	ReserveCapacity(ctx context.Context, slotID uuid.UUID) (domain.Slot, error)
	// ReleaseCapacity decrements booked_count, never below zero.
	ReleaseCapacity(ctx context.Context, slotID uuid.UUID) error
	SetBlackout(ctx context.Context, providerID string, r domain.DateRange, blacked bool) (int, error)
	// DeleteEmptySlots removes unbooked slots in r and reports how many booked
	// slots were left in place.
	DeleteEmptySlots(ctx context.Context, providerID string, r domain.DateRange) (deleted int, skipped int, err error)

	CountSubjectBookings(ctx context.Context, subjectID string, date time.Time) (int, error)
	InsertBooking(ctx context.Context, booking domain.Booking) (domain.Booking, error)
	DeleteBooking(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error)

	InsertVacation(ctx context.Context, v domain.VacationRange) (domain.VacationRange, error)
	DeleteVacation(ctx context.Context, providerID string, vacationID uuid.UUID) (domain.VacationRange, error)

	AppendEvent(ctx context.Context, event domain.Event) error
}

type Store interface {
	Reader
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Outbox is read by the event deliverer.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]domain.Event, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error)
}

func ProviderLockKey(providerID string) string {
	return "provider:" + providerID
}

func SubjectLockKey(subjectID string) string {
	return "subject:" + subjectID
}
