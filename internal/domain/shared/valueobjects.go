// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// NewID returns a fresh random identifier for an entity.
func NewID() string {
	return uuid.New().String()
}

// ValidateID checks that id is a non-empty identifier without surrounding whitespace.
func ValidateID(id string) error {
	if id == "" || strings.TrimSpace(id) != id {
		return ErrInvalidID
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Time Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Clock is the source of "now" for every state transition.
// Production code uses SystemClock; tests inject a FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the configured location.
type SystemClock struct {
	Location *time.Location
}

// Now implements Clock.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now implements Clock.
func (c FixedClock) Now() time.Time {
	return c.T
}

// Date is a calendar day with no time-of-day or zone component.
// It is stored as midnight UTC so that equality and day arithmetic are exact.
type Date struct {
	t time.Time
}

// DateOf returns the calendar day of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return d.t
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether both dates are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysSince returns the number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.t.Sub(other.t).Hours() / 24)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.t.Format("2006-01-02")
}
