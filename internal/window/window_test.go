package window

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"weather_alerts/internal/model"
)

func TestDecide(t *testing.T) {
	// 05:04 UTC = 06:04 in Berlin (CET, winter), 00:04 in New York (EST).
	nowUTC := time.Date(2026, 1, 15, 5, 4, 0, 0, time.UTC)

	tests := []struct {
		name          string
		timezone      string
		nowUTC        time.Time
		lastSentDate  string
		targetHour    int
		windowMinutes int
		force         bool
		want          Decision
	}{
		{
			name:          "inside window",
			timezone:      "Europe/Berlin",
			nowUTC:        nowUTC,
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Eligible: true, LocalDate: "2026-01-15"},
		},
		{
			name:          "no timezone",
			timezone:      "",
			nowUTC:        nowUTC,
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Reason: model.SkipNoTimezone},
		},
		{
			name:          "invalid timezone",
			timezone:      "Mars/Olympus_Mons",
			nowUTC:        nowUTC,
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Reason: model.SkipInvalidTimezone},
		},
		{
			name:          "different zone disagrees at same instant",
			timezone:      "America/New_York",
			nowUTC:        nowUTC,
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Reason: model.SkipOutsideWindow, LocalDate: "2026-01-15"},
		},
		{
			name:          "minute at window edge is excluded",
			timezone:      "Europe/Berlin",
			nowUTC:        time.Date(2026, 1, 15, 5, 15, 0, 0, time.UTC),
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Reason: model.SkipOutsideWindow, LocalDate: "2026-01-15"},
		},
		{
			name:          "window start is included",
			timezone:      "Europe/Berlin",
			nowUTC:        time.Date(2026, 1, 15, 5, 0, 0, 0, time.UTC),
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Eligible: true, LocalDate: "2026-01-15"},
		},
		{
			name:          "already sent today",
			timezone:      "Europe/Berlin",
			nowUTC:        nowUTC,
			lastSentDate:  "2026-01-15",
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Reason: model.SkipAlreadySent, LocalDate: "2026-01-15"},
		},
		{
			name:          "sent yesterday is eligible again",
			timezone:      "Europe/Berlin",
			nowUTC:        nowUTC,
			lastSentDate:  "2026-01-14",
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Eligible: true, LocalDate: "2026-01-15"},
		},
		{
			name:          "force bypasses window",
			timezone:      "America/New_York",
			nowUTC:        nowUTC,
			targetHour:    6,
			windowMinutes: 15,
			force:         true,
			want:          Decision{Eligible: true, LocalDate: "2026-01-15"},
		},
		{
			name:          "force does not bypass already-sent gate",
			timezone:      "Europe/Berlin",
			nowUTC:        nowUTC,
			lastSentDate:  "2026-01-15",
			targetHour:    6,
			windowMinutes: 15,
			force:         true,
			want:          Decision{Reason: model.SkipAlreadySent, LocalDate: "2026-01-15"},
		},
		{
			name:          "force sent yesterday is eligible outside the window",
			timezone:      "America/New_York",
			nowUTC:        nowUTC,
			lastSentDate:  "2026-01-14",
			targetHour:    6,
			windowMinutes: 15,
			force:         true,
			want:          Decision{Eligible: true, LocalDate: "2026-01-15"},
		},
		{
			name:          "local date differs across the date line",
			timezone:      "Pacific/Auckland",
			nowUTC:        time.Date(2026, 1, 15, 17, 5, 0, 0, time.UTC), // 06:05 on Jan 16 in Auckland (NZDT)
			targetHour:    6,
			windowMinutes: 15,
			want:          Decision{Eligible: true, LocalDate: "2026-01-16"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.timezone, tt.nowUTC, tt.lastSentDate, tt.targetHour, tt.windowMinutes, tt.force)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecideAlreadySentAnyTimeOfDay(t *testing.T) {
	// The idempotency gate holds regardless of time-of-day once today's date
	// was recorded, with and without the force override.
	for hour := 0; hour < 24; hour++ {
		nowUTC := time.Date(2026, 1, 15, hour, 5, 0, 0, time.UTC)
		localDate := nowUTC.In(mustLoadLocation(t, "Europe/Berlin")).Format("2006-01-02")

		for _, force := range []bool{false, true} {
			got := Decide("Europe/Berlin", nowUTC, localDate, hour+1, 15, force)
			if got.Eligible {
				t.Errorf("hour %d force=%v: eligible despite lastSentDate == today", hour, force)
			}
		}
	}
}

func mustLoadLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load location %s: %v", name, err)
	}
	return loc
}
