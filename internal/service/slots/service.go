package slots

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func NewService(st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, logger: logger.With("component", "slots")}
}

type CreateInput struct {
	ProviderID    string
	Date          time.Time
	StartTime     domain.Clock
	EndTime       domain.Clock
	TotalCapacity int
}

type slotPayload struct {
	SlotID        uuid.UUID `json:"slot_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	TotalCapacity int       `json:"total_capacity"`
	Blacked       bool      `json:"blacked,omitempty"`
}

func payloadOf(s domain.Slot) slotPayload {
	return slotPayload{
		SlotID:        s.ID,
		Date:          domain.FormatDate(s.Date),
		StartTime:     s.StartTime.String(),
		EndTime:       s.EndTime.String(),
		TotalCapacity: s.TotalCapacity,
		Blacked:       s.Blacked,
	}
}

// Create adds a slot. Identical slots may be created repeatedly. A slot
// dated inside one of the provider's vacation ranges starts blacked out.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Slot, error) {
	slot, err := domain.NewSlot(strings.TrimSpace(in.ProviderID), in.Date, in.StartTime, in.EndTime, in.TotalCapacity)
	if err != nil {
		return domain.Slot{}, err
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Lock(ctx, store.ProviderLockKey(slot.ProviderID)); err != nil {
			return err
		}
		vacations, err := tx.ListVacations(ctx, slot.ProviderID)
		if err != nil {
			return err
		}
		slot.Blacked = domain.Covered(domain.VacationRanges(vacations), slot.Date)

		slot, err = tx.CreateSlot(ctx, slot)
		if err != nil {
			return err
		}
		return appendEvent(ctx, tx, slot.ProviderID, domain.EventSlotCreated, payloadOf(slot))
	})
	if err != nil {
		return domain.Slot{}, err
	}

	s.logger.Info("slot created",
		"provider_id", slot.ProviderID,
		"slot_id", slot.ID.String(),
		"date", domain.FormatDate(slot.Date),
		"blacked", slot.Blacked,
	)
	return slot, nil
}

func (s *Service) Get(ctx context.Context, slotID uuid.UUID) (domain.Slot, error) {
	if slotID == uuid.Nil {
		return domain.Slot{}, domain.Invalid("slot_id is required")
	}
	return s.store.GetSlot(ctx, slotID)
}

// List returns every slot of the provider, optionally restricted to r,
// ordered by date and start time.
func (s *Service) List(ctx context.Context, providerID string, r *domain.DateRange) ([]domain.Slot, error) {
	return s.list(ctx, providerID, r, false)
}

// ListAvailable is the public view: only slots that can still be booked.
func (s *Service) ListAvailable(ctx context.Context, providerID string, r *domain.DateRange) ([]domain.Slot, error) {
	return s.list(ctx, providerID, r, true)
}

func (s *Service) list(ctx context.Context, providerID string, r *domain.DateRange, availableOnly bool) ([]domain.Slot, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Invalid("provider_id is required")
	}
	if r != nil && r.To.Before(r.From) {
		return nil, domain.NewValidationError(domain.ErrInvalidRange, "to must not be before from")
	}
	return s.store.ListSlots(ctx, store.SlotFilter{
		ProviderID:    providerID,
		Range:         r,
		AvailableOnly: availableOnly,
	})
}

func (s *Service) Delete(ctx context.Context, providerID string, slotID uuid.UUID) error {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return domain.Invalid("provider_id is required")
	}
	if slotID == uuid.Nil {
		return domain.Invalid("slot_id is required")
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.DeleteSlot(ctx, providerID, slotID); err != nil {
			return err
		}
		return appendEvent(ctx, tx, providerID, domain.EventSlotDeleted, map[string]string{
			"slot_id": slotID.String(),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("slot deleted", "provider_id", providerID, "slot_id", slotID.String())
	return nil
}

// UpdateCapacity changes total capacity while the slot has no bookings.
// Date and times cannot be changed after creation.
func (s *Service) UpdateCapacity(ctx context.Context, providerID string, slotID uuid.UUID, totalCapacity int) (domain.Slot, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return domain.Slot{}, domain.Invalid("provider_id is required")
	}
	if slotID == uuid.Nil {
		return domain.Slot{}, domain.Invalid("slot_id is required")
	}
	if totalCapacity < 1 {
		return domain.Slot{}, domain.NewValidationError(domain.ErrInvalidCapacity, "total_capacity must be at least 1")
	}

	var updated domain.Slot
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		updated, err = tx.UpdateCapacity(ctx, providerID, slotID, totalCapacity)
		if err != nil {
			return err
		}
		return appendEvent(ctx, tx, providerID, domain.EventCapacityChanged, payloadOf(updated))
	})
	if err != nil {
		return domain.Slot{}, err
	}

	s.logger.Info("slot capacity changed",
		"provider_id", providerID,
		"slot_id", slotID.String(),
		"total_capacity", totalCapacity,
	)
	return updated, nil
}

func appendEvent(ctx context.Context, tx store.Tx, providerID string, typ domain.EventType, payload any) error {
	event, err := domain.NewEvent(providerID, typ, payload)
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, event)
}
