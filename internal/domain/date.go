package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var Weekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// DateOf drops the time of day and location, keeping the calendar date as
// seen in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MondayOf returns the Monday starting the week that contains t.
func MondayOf(t time.Time) time.Time {
	d := DateOf(t)
	return d.AddDate(0, 0, -weekdayOffsetFromMonday(d.Weekday()))
}

func weekdayOffsetFromMonday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 6
	}
	return int(wd) - 1
}

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: DateOf(from), To: DateOf(to)}
	if r.To.Before(r.From) {
		return DateRange{}, NewValidationError(ErrInvalidRange, "end date must not be before start date")
	}
	return r, nil
}

// WeekFrom is the seven-day window beginning at start.
func WeekFrom(start time.Time) DateRange {
	d := DateOf(start)
	return DateRange{From: d, To: d.AddDate(0, 0, 6)}
}

func (r DateRange) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(r.From) && !d.After(r.To)
}

func (r DateRange) Overlaps(o DateRange) bool {
	return !r.To.Before(o.From) && !o.To.Before(r.From)
}

// Subtract returns the parts of r not covered by any of others, in date order.
func (r DateRange) Subtract(others []DateRange) []DateRange {
	covering := make([]DateRange, 0, len(others))
	for _, o := range others {
		if o.Overlaps(r) {
			covering = append(covering, o)
		}
	}
	sort.Slice(covering, func(i, j int) bool { return covering[i].From.Before(covering[j].From) })

	out := make([]DateRange, 0, 2)
	cursor := r.From
	for _, o := range covering {
		if o.From.After(cursor) {
			end := o.From.AddDate(0, 0, -1)
			if end.After(r.To) {
				end = r.To
			}
			out = append(out, DateRange{From: cursor, To: end})
		}
		next := o.To.AddDate(0, 0, 1)
		if next.After(cursor) {
			cursor = next
		}
		if cursor.After(r.To) {
			return out
		}
	}
	if !cursor.After(r.To) {
		out = append(out, DateRange{From: cursor, To: r.To})
	}
	return out
}
