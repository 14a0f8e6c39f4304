package summary

import (
	"context"
	"strings"
	"time"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/store"
)

type DayTotals struct {
	Weekday       string `json:"weekday"`
	TotalCapacity int    `json:"total_capacity"`
	BookedCount   int    `json:"booked_count"`
	SlotCount     int    `json:"slot_count"`
}

type Weekly struct {
	WeekStart time.Time
	Days      []DayTotals
}

type Service struct {
	slots store.Reader
	now   func() time.Time
}

func NewService(slots store.Reader) *Service {
	return &Service{slots: slots, now: time.Now}
}

// Weekly sums the provider's slots dated in [weekStart, weekStart+6] per
// weekday. Days are always listed Monday to Sunday, empty days included.
// A zero weekStart means the Monday of the current week.
func (s *Service) Weekly(ctx context.Context, providerID string, weekStart time.Time) (Weekly, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return Weekly{}, domain.Invalid("provider_id is required")
	}
	start := domain.DateOf(weekStart)
	if weekStart.IsZero() {
		start = domain.MondayOf(s.now())
	}

	week := domain.WeekFrom(start)
	rows, err := s.slots.ListSlots(ctx, store.SlotFilter{ProviderID: providerID, Range: &week})
	if err != nil {
		return Weekly{}, err
	}

	byDay := make(map[time.Weekday]*DayTotals, 7)
	days := make([]DayTotals, len(domain.Weekdays))
	for i, wd := range domain.Weekdays {
		days[i].Weekday = wd.String()
	}
	for i, wd := range domain.Weekdays {
		byDay[wd] = &days[i]
	}
	for _, slot := range rows {
		d := byDay[slot.Date.Weekday()]
		d.TotalCapacity += slot.TotalCapacity
		d.BookedCount += slot.BookedCount
		d.SlotCount++
	}

	return Weekly{WeekStart: start, Days: days}, nil
}
