// Package timeutil resolves the calendar day habits are tracked against.
// Streaks count calendar days in the configured zone, so handlers convert
// "now" through In before taking the date.
package timeutil

import "time"

// DefaultTimezone is used when no zone is configured.
const DefaultTimezone = "UTC"

// LoadLocation resolves a zone name, falling back to UTC when the name is
// empty or unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// In converts t to loc (UTC when loc is nil).
func In(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}
