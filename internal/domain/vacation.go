package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VacationRange struct {
	bun.BaseModel `bun:"table:vacation_ranges"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID string    `bun:"provider_id,notnull"`
	Start      time.Time `bun:"start_date,notnull,type:date"`
	End        time.Time `bun:"end_date,notnull,type:date"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (v VacationRange) Range() DateRange {
	return DateRange{From: DateOf(v.Start), To: DateOf(v.End)}
}

func VacationRanges(vs []VacationRange) []DateRange {
	out := make([]DateRange, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Range())
	}
	return out
}

// Covered reports whether date falls in any of the ranges.
func Covered(ranges []DateRange, date time.Time) bool {
	for _, r := range ranges {
		if r.Contains(date) {
			return true
		}
	}
	return false
}

func (v *VacationRange) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if v.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		v.ID = id
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return nil
}
