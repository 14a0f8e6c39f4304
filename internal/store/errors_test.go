package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestUnavailable_ClassifiesDriverErrors(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	err := Unavailable("list slots", cause)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("errors.Is(err, ErrUnavailable) = false for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause must stay reachable through Unwrap")
	}
	var uErr *UnavailableError
	if !errors.As(err, &uErr) || uErr.Op != "list slots" {
		t.Fatalf("error = %#v, want *UnavailableError with op", err)
	}
}

func TestUnavailable_PassesSentinelsThrough(t *testing.T) {
	for _, sentinel := range []error{ErrNotFound, ErrSlotFull, ErrSlotBlacked, ErrSlotHasBookings, ErrDailyLimit, context.Canceled} {
		wrapped := fmt.Errorf("reserve: %w", sentinel)
		if got := Unavailable("op", wrapped); got != wrapped {
			t.Fatalf("Unavailable(%v) = %v, want unchanged", wrapped, got)
		}
	}
	if Unavailable("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
