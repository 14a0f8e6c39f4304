package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Booking consumes one unit of its slot's capacity. ProviderID and Date are
// copied from the slot when the booking is made.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	SlotID     uuid.UUID `bun:"slot_id,notnull,type:uuid"`
	ProviderID string    `bun:"provider_id,notnull"`
	SubjectID  string    `bun:"subject_id,notnull"`
	Date       time.Time `bun:"date,notnull,type:date"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return nil
}
