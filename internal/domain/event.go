package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type EventType string

const (
	EventSlotCreated      EventType = "slot.created"
	EventSlotDeleted      EventType = "slot.deleted"
	EventCapacityChanged  EventType = "slot.capacity_changed"
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
	EventWeekCopied       EventType = "week.copied"
	EventWeekCleared      EventType = "week.cleared"
	EventVacationSet      EventType = "vacation.set"
	EventVacationEnded    EventType = "vacation.ended"
)

// Event is an outbox row written in the same transaction as the change it
// describes and delivered later by the events package.
type Event struct {
	bun.BaseModel `bun:"table:outbox"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid"`
	ProviderID  string          `bun:"provider_id,notnull"`
	Type        EventType       `bun:"type,notnull"`
	Payload     json.RawMessage `bun:"payload,type:jsonb,notnull"`
	CreatedAt   time.Time       `bun:"created_at,notnull"`
	DeliveredAt *time.Time      `bun:"delivered_at"`
}

func NewEvent(providerID string, typ EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         id,
		ProviderID: providerID,
		Type:       typ,
		Payload:    data,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (e *Event) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
