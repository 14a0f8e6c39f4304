package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Slot struct {
	bun.BaseModel `bun:"table:slots"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID    string    `bun:"provider_id,notnull"`
	Date          time.Time `bun:"date,notnull,type:date"`
	Weekday       string    `bun:"weekday,notnull"`
	StartTime     Clock     `bun:"start_minute,notnull"`
	EndTime       Clock     `bun:"end_minute,notnull"`
	TotalCapacity int       `bun:"total_capacity,notnull"`
	BookedCount   int       `bun:"booked_count,notnull"`
	Blacked       bool      `bun:"blacked,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

// NewSlot validates the time range and capacity of a slot offered by
// providerID on date. The returned slot has no id yet.
func NewSlot(providerID string, date time.Time, start, end Clock, totalCapacity int) (Slot, error) {
	if providerID == "" {
		return Slot{}, Invalid("provider_id is required")
	}
	if !start.Valid() || !end.Valid() {
		return Slot{}, NewValidationError(ErrInvalidRange, "time of day out of range")
	}
	if start >= end {
		return Slot{}, NewValidationError(ErrInvalidRange, "end_time must be after start_time")
	}
	if totalCapacity < 1 {
		return Slot{}, NewValidationError(ErrInvalidCapacity, "total_capacity must be at least 1")
	}
	d := DateOf(date)
	return Slot{
		ProviderID:    providerID,
		Date:          d,
		Weekday:       d.Weekday().String(),
		StartTime:     start,
		EndTime:       end,
		TotalCapacity: totalCapacity,
	}, nil
}

func (s Slot) Remaining() int {
	if s.BookedCount >= s.TotalCapacity {
		return 0
	}
	return s.TotalCapacity - s.BookedCount
}

func (s Slot) Bookable() bool {
	return !s.Blacked && s.Remaining() > 0
}

// CopyTo returns an unbooked copy of the slot moved to date.
func (s Slot) CopyTo(date time.Time) Slot {
	d := DateOf(date)
	return Slot{
		ProviderID:    s.ProviderID,
		Date:          d,
		Weekday:       d.Weekday().String(),
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		TotalCapacity: s.TotalCapacity,
	}
}

func (s *Slot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
		s.Date = DateOf(s.Date)
		s.Weekday = s.Date.Weekday().String()
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}
