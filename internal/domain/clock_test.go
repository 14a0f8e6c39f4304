package domain

import "testing"

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "09:00", want: 9 * 60},
		{in: "9:30", want: 9*60 + 30},
		{in: "23:59", want: 23*60 + 59},
		{in: "14:15:00", want: 14*60 + 15},
		{in: "09:00 AM", want: 9 * 60},
		{in: "12:00 PM", want: 12 * 60},
		{in: "12:30 am", want: 30},
		{in: "02:45PM", want: 14*60 + 45},
		{in: "", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClockString(t *testing.T) {
	if got := Clock(9*60 + 5).String(); got != "09:05" {
		t.Fatalf("String = %q, want %q", got, "09:05")
	}
	if got := Clock(13*60 + 30).Display(); got != "01:30 PM" {
		t.Fatalf("Display = %q, want %q", got, "01:30 PM")
	}
	if got := Clock(0).Display(); got != "12:00 AM" {
		t.Fatalf("Display = %q, want %q", got, "12:00 AM")
	}
}

func TestClockScan(t *testing.T) {
	var c Clock
	if err := c.Scan(int64(600)); err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if c != 600 {
		t.Fatalf("clock = %d, want 600", c)
	}
	if err := c.Scan([]byte("75")); err != nil {
		t.Fatalf("Scan bytes error: %v", err)
	}
	if c != 75 {
		t.Fatalf("clock = %d, want 75", c)
	}
	if err := c.Scan(1.5); err == nil {
		t.Fatalf("expected error for float source")
	}
}
