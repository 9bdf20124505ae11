// Package window decides per-subscriber daily send eligibility.
package window

import (
	"time"

	"weather_alerts/internal/model"
)

const dateLayout = "2006-01-02"

// Decision is the outcome of an eligibility check.
type Decision struct {
	Eligible bool
	// Reason is set when the subscriber is not eligible.
	Reason model.SkipReason
	// LocalDate is today's calendar date in the subscriber's own zone,
	// empty when the zone could not be resolved.
	LocalDate string
}

// Decide reports whether a subscriber may receive an alert right now.
//
// The subscriber is eligible when their local time falls inside the
// [targetHour:00, targetHour:windowMinutes) window and no alert was sent on
// today's local date yet. Today is derived from the subscriber's own zone:
// two subscribers in different zones can be on different calendar dates at
// the same instant. force bypasses the window check but never the once-per-day
// gate, so repeated forced runs cannot double-send within one local day.
func Decide(timezone string, nowUTC time.Time, lastSentDate string, targetHour, windowMinutes int, force bool) Decision {
	if timezone == "" {
		return Decision{Reason: model.SkipNoTimezone}
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Decision{Reason: model.SkipInvalidTimezone}
	}

	local := nowUTC.In(loc)
	localDate := local.Format(dateLayout)

	if lastSentDate == localDate {
		return Decision{Reason: model.SkipAlreadySent, LocalDate: localDate}
	}
	if force {
		return Decision{Eligible: true, LocalDate: localDate}
	}

	if local.Hour() != targetHour || local.Minute() >= windowMinutes {
		return Decision{Reason: model.SkipOutsideWindow, LocalDate: localDate}
	}
	return Decision{Eligible: true, LocalDate: localDate}
}
