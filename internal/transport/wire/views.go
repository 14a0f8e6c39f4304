package wire

import (
	"time"

	"counsel/backend/internal/domain"
	"counsel/backend/internal/service/summary"
)

type Slot struct {
	ID               string    `json:"id"`
	ProviderID       string    `json:"provider_id"`
	Date             string    `json:"date"`
	Weekday          string    `json:"weekday"`
	StartTime        string    `json:"start_time"`
	EndTime          string    `json:"end_time"`
	StartTimeDisplay string    `json:"start_time_display"`
	EndTimeDisplay   string    `json:"end_time_display"`
	TotalCapacity    int       `json:"total_capacity"`
	BookedCount      int       `json:"booked_count"`
	Remaining        int       `json:"remaining"`
	Blacked          bool      `json:"blacked"`
	CreatedAt        time.Time `json:"created_at"`
}

func SlotFrom(s domain.Slot) Slot {
	return Slot{
		ID:               s.ID.String(),
		ProviderID:       s.ProviderID,
		Date:             domain.FormatDate(s.Date),
		Weekday:          s.Weekday,
		StartTime:        s.StartTime.String(),
		EndTime:          s.EndTime.String(),
		StartTimeDisplay: s.StartTime.Display(),
		EndTimeDisplay:   s.EndTime.Display(),
		TotalCapacity:    s.TotalCapacity,
		BookedCount:      s.BookedCount,
		Remaining:        s.Remaining(),
		Blacked:          s.Blacked,
		CreatedAt:        s.CreatedAt,
	}
}

func SlotsFrom(rows []domain.Slot) []Slot {
	out := make([]Slot, 0, len(rows))
	for _, s := range rows {
		out = append(out, SlotFrom(s))
	}
	return out
}

type Booking struct {
	ID         string    `json:"id"`
	SlotID     string    `json:"slot_id"`
	ProviderID string    `json:"provider_id"`
	SubjectID  string    `json:"subject_id"`
	Date       string    `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

func BookingFrom(b domain.Booking) Booking {
	return Booking{
		ID:         b.ID.String(),
		SlotID:     b.SlotID.String(),
		ProviderID: b.ProviderID,
		SubjectID:  b.SubjectID,
		Date:       domain.FormatDate(b.Date),
		CreatedAt:  b.CreatedAt,
	}
}

func BookingsFrom(rows []domain.Booking) []Booking {
	out := make([]Booking, 0, len(rows))
	for _, b := range rows {
		out = append(out, BookingFrom(b))
	}
	return out
}

type Vacation struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

func VacationFrom(v domain.VacationRange) Vacation {
	return Vacation{
		ID:         v.ID.String(),
		ProviderID: v.ProviderID,
		Start:      domain.FormatDate(v.Start),
		End:        domain.FormatDate(v.End),
	}
}

func VacationsFrom(rows []domain.VacationRange) []Vacation {
	out := make([]Vacation, 0, len(rows))
	for _, v := range rows {
		out = append(out, VacationFrom(v))
	}
	return out
}

type WeeklySummary struct {
	WeekStart string              `json:"week_start"`
	Days      []summary.DayTotals `json:"days"`
}

func WeeklySummaryFrom(w summary.Weekly) WeeklySummary {
	return WeeklySummary{WeekStart: domain.FormatDate(w.WeekStart), Days: w.Days}
}
