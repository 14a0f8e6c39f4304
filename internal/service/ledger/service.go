package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

var tracer = otel.Tracer("counsel.internal.service.ledger")

// Metrics is satisfied by *metrics.SchedulingMetrics. A nil Metrics is
// allowed.
type Metrics interface {
	ObserveBooking(err error)
	ObserveCancellation()
	ObserveLatency(operation string, seconds float64)
}

type Config struct {
	// OnePerDay rejects a second booking by the same subject on the same date.
	OnePerDay bool
	Metrics   Metrics
	Logger    *slog.Logger
}

type Service struct {
	store     store.Store
	onePerDay bool
	metrics   Metrics
	logger    *slog.Logger
}

func NewService(st store.Store, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     st,
		onePerDay: cfg.OnePerDay,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "ledger"),
	}
}

type bookingPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
	SlotID    uuid.UUID `json:"slot_id"`
	SubjectID string    `json:"subject_id"`
	Date      string    `json:"date"`
	Remaining int       `json:"remaining"`
}

// Book reserves one unit of the slot's capacity for subjectID. The capacity
// increment, the booking row and its outbox event commit together.
func (s *Service) Book(ctx context.Context, slotID uuid.UUID, subjectID string) (booking domain.Booking, err error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.Booking{}, domain.Invalid("subject_id is required")
	}
	if slotID == uuid.Nil {
		return domain.Booking{}, domain.Invalid("slot_id is required")
	}

	ctx, span := tracer.Start(ctx, "ledger.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("counsel.slot_id", slotID.String()),
		attribute.String("counsel.subject_id", subjectID),
	)

	started := time.Now()
	defer func() {
		s.observe(err, started)
		if err != nil {
			span.RecordError(err)
		}
	}()

	err = s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.SubjectLockKey(subjectID)); err != nil {
			return err
		}

		slot, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if s.onePerDay {
			n, err := tx.CountSubjectBookings(ctx, subjectID, slot.Date)
			if err != nil {
				return err
			}
			if n > 0 {
				return store.ErrDailyLimit
			}
		}

		reserved, err := tx.ReserveCapacity(ctx, slotID)
		if err != nil {
			return err
		}

		booking, err = tx.InsertBooking(ctx, domain.Booking{
			SlotID:     reserved.ID,
			ProviderID: reserved.ProviderID,
			SubjectID:  subjectID,
			Date:       reserved.Date,
		})
		if err != nil {
			return err
		}

		event, err := domain.NewEvent(reserved.ProviderID, domain.EventBookingCreated, bookingPayload{
			BookingID: booking.ID,
			SlotID:    reserved.ID,
			SubjectID: subjectID,
			Date:      domain.FormatDate(reserved.Date),
			Remaining: reserved.Remaining(),
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID.String(),
		"slot_id", slotID.String(),
		"subject_id", subjectID,
	)
	return booking, nil
}

func (s *Service) observe(err error, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveBooking(err)
	s.metrics.ObserveLatency("book", time.Since(started).Seconds())
}

// Cancel removes a booking owned by subjectID and gives its capacity back to
// the slot. Bookings of other subjects are reported as not found.
func (s *Service) Cancel(ctx context.Context, subjectID string, bookingID uuid.UUID) (domain.Booking, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.Booking{}, domain.Invalid("subject_id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, domain.Invalid("booking_id is required")
	}

	ctx, span := tracer.Start(ctx, "ledger.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("counsel.booking_id", bookingID.String()))

	var cancelled domain.Booking
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.SubjectLockKey(subjectID)); err != nil {
			return err
		}

		b, err := tx.DeleteBooking(ctx, subjectID, bookingID)
		if err != nil {
			return err
		}
		if err := tx.ReleaseCapacity(ctx, b.SlotID); err != nil {
			return err
		}

		event, err := domain.NewEvent(b.ProviderID, domain.EventBookingCancelled, bookingPayload{
			BookingID: b.ID,
			SlotID:    b.SlotID,
			SubjectID: subjectID,
			Date:      domain.FormatDate(b.Date),
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, event); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Booking{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveCancellation()
	}
	s.logger.Info("booking cancelled",
		"booking_id", bookingID.String(),
		"slot_id", cancelled.SlotID.String(),
	)
	return cancelled, nil
}

// Get returns a booking to its subject or to the provider whose slot it is
// on. Anyone else gets ErrNotFound.
func (s *Service) Get(ctx context.Context, callerID string, bookingID uuid.UUID) (domain.Booking, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return domain.Booking{}, domain.Invalid("caller id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, domain.Invalid("booking_id is required")
	}

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if b.SubjectID != callerID && b.ProviderID != callerID {
		return domain.Booking{}, store.ErrNotFound
	}
	return b, nil
}

// ListForSlot returns the bookings on a slot owned by providerID.
func (s *Service) ListForSlot(ctx context.Context, providerID string, slotID uuid.UUID) ([]domain.Booking, error) {
	if strings.TrimSpace(providerID) == "" {
		return nil, domain.Invalid("provider_id is required")
	}
	if slotID == uuid.Nil {
		return nil, domain.Invalid("slot_id is required")
	}

	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.ProviderID != providerID {
		return nil, store.ErrNotFound
	}
	return s.store.ListBookingsForSlot(ctx, slotID)
}
