package wire

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
)

// OptionalDate parses YYYY-MM-DD. An empty string yields the zero time,
// which services read as "use the default".
func OptionalDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return RequiredDate(field, s)
}

func RequiredDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, domain.Invalid(field + " is required")
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.Invalid(field + " must be a YYYY-MM-DD date")
	}
	return d, nil
}

func Clock(field, s string) (domain.Clock, error) {
	c, err := domain.ParseClock(s)
	if err != nil {
		return 0, domain.Invalid(field + " must be HH:MM or hh:MM AM/PM")
	}
	return c, nil
}

func ID(field, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, domain.Invalid(field + " is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, domain.Invalid(field + " must be a UUID")
	}
	return id, nil
}

// OptionalRange builds a date filter from two optional bounds. A missing
// bound is left open by mirroring the other one's far side.
func OptionalRange(from, to string) (*domain.DateRange, error) {
	f, err := OptionalDate("from", from)
	if err != nil {
		return nil, err
	}
	t, err := OptionalDate("to", to)
	if err != nil {
		return nil, err
	}
	if f.IsZero() && t.IsZero() {
		return nil, nil
	}
	if f.IsZero() {
		f = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if t.IsZero() {
		t = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	r, err := domain.NewDateRange(f, t)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Capacity picks the requested slot capacity. total_slots is the field name
// older clients send; with neither present a slot holds one session.
func Capacity(totalCapacity, totalSlots *int) int {
	switch {
	case totalCapacity != nil:
		return *totalCapacity
	case totalSlots != nil:
		return *totalSlots
	default:
		return 1
	}
}
