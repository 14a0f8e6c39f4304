package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day in minutes since midnight. No time zone is
// attached; slots are interpreted in the provider's local time.
type Clock int

const MinutesPerDay = 24 * 60

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// ParseClock accepts 24h "HH:MM" as well as "hh:MM AM/PM".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time of day")
	}
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, strings.ToUpper(s))
		if err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Display renders the 12-hour form shown to people booking, e.g. "09:30 AM".
func (c Clock) Display() string {
	return time.Date(2000, 1, 1, int(c)/60, int(c)%60, 0, 0, time.UTC).Format("03:04 PM")
}

func (c Clock) Value() (driver.Value, error) {
	return int64(c), nil
}

func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*c = Clock(v)
	case int32:
		*c = Clock(v)
	case []byte:
		var n int
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return err
		}
		*c = Clock(n)
	case string:
		var n int
		if _, err := fmt.Sscan(v, &n); err != nil {
			return err
		}
		*c = Clock(n)
	default:
		return fmt.Errorf("clock: unsupported scan type %T", src)
	}
	return nil
}
