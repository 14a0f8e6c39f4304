package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSlotFull        = errors.New("slot is fully booked")
	ErrSlotBlacked     = errors.New("slot is blacked out")
	ErrSlotHasBookings = errors.New("slot has bookings")
	ErrDailyLimit      = errors.New("subject already booked a session on this date")
	ErrUnavailable     = errors.New("storage unavailable")
)

// UnavailableError wraps a driver or connectivity failure. It matches
// ErrUnavailable under errors.Is while keeping the cause for logs.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return "storage unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Unavailable classifies err. Sentinels and context errors pass through
// untouched; anything else becomes an *UnavailableError.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrSlotFull),
		errors.Is(err, ErrSlotBlacked),
		errors.Is(err, ErrSlotHasBookings),
		errors.Is(err, ErrDailyLimit),
		errors.Is(err, ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}
