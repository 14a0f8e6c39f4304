package wire

import (
	"context"
	"errors"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

// Kind is the machine-readable error class returned to callers.
type Kind string

const (
	KindInvalidRange    Kind = "InvalidRange"
	KindInvalidCapacity Kind = "InvalidCapacity"
	KindValidation      Kind = "ValidationError"
	KindNotFound        Kind = "NotFound"
	KindSlotFull        Kind = "SlotFull"
	KindSlotBlacked     Kind = "SlotBlacked"
	KindSlotHasBookings Kind = "SlotHasBookings"
	KindDailyLimit      Kind = "DailyLimitReached"
	KindUnauthenticated Kind = "Unauthenticated"
	KindUnavailable     Kind = "StorageUnavailable"
	KindInternal        Kind = "Internal"
)

// ErrUnauthenticated is returned when no caller identity reached the API.
var ErrUnauthenticated = errors.New("caller identity is required")

// Classify maps a service error to its kind and a message safe to show the
// caller. Storage and internal failures never expose their cause.
func Classify(err error) (Kind, string) {
	var vErr *domain.ValidationError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated, err.Error()
	case errors.Is(err, domain.ErrInvalidRange):
		return KindInvalidRange, err.Error()
	case errors.Is(err, domain.ErrInvalidCapacity):
		return KindInvalidCapacity, err.Error()
	case errors.As(err, &vErr):
		return KindValidation, vErr.Error()
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound, "not found"
	case errors.Is(err, store.ErrSlotFull):
		return KindSlotFull, "This slot is fully booked."
	case errors.Is(err, store.ErrSlotBlacked):
		return KindSlotBlacked, "The counselor is unavailable on this date."
	case errors.Is(err, store.ErrSlotHasBookings):
		return KindSlotHasBookings, "This slot already has bookings."
	case errors.Is(err, store.ErrDailyLimit):
		return KindDailyLimit, "You already have a session booked on this date."
	case errors.Is(err, store.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindUnavailable, "Scheduling is temporarily unavailable. Please retry."
	default:
		return KindInternal, "internal error"
	}
}
