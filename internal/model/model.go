// Package model defines the domain types used across the application.
package model

import "time"

// Subscriber represents a person receiving daily weather alerts for one location.
type Subscriber struct {
	ID               int64
	Phone            string
	Country          string
	PostalCode       string
	LocationName     string
	Lat              float64
	Lon              float64
	Timezone         string
	LastSentDate     string // local calendar date "2006-01-02", empty if never sent
	IsActive         bool
	UnsubscribeToken string
	CreatedAt        time.Time
	LastNotifiedAt   *time.Time
}

// Category is a weather severity category derived from provider condition codes.
type Category string

// Severity categories, from the OpenWeather condition code ranges.
const (
	CategoryThunderstorm Category = "Thunderstorm"
	CategoryDrizzle      Category = "Drizzle"
	CategoryRain         Category = "Rain"
	CategorySnow         Category = "Snow"
	CategoryOther        Category = "Other"
)

// Severity maps each severe category to the local times (HH:MM) at which it
// appears within the forecast horizon. A present key means the category was
// found at least once; the times are informational only.
type Severity map[Category][]string

// Has reports whether the category was found within the horizon.
func (s Severity) Has(c Category) bool {
	_, ok := s[c]
	return ok
}

// Empty reports whether no severe weather was found.
func (s Severity) Empty() bool {
	return len(s) == 0
}

// Outcome is the terminal state of one subscriber within a dispatch run.
type Outcome string

// Terminal per-subscriber states.
const (
	OutcomeAlerted Outcome = "alerted"
	OutcomeSkipped Outcome = "skipped"
	OutcomeErrored Outcome = "errored"
)

// SkipReason explains why a subscriber was skipped without error.
type SkipReason string

// Skip reasons, all non-fatal.
const (
	SkipNoTimezone      SkipReason = "no_timezone"
	SkipInvalidTimezone SkipReason = "invalid_timezone"
	SkipOutsideWindow   SkipReason = "outside_window"
	SkipAlreadySent     SkipReason = "already_sent_today"
	SkipNoSevereWeather SkipReason = "no_severe_weather"
	SkipEmptyMessage    SkipReason = "empty_message"
)
