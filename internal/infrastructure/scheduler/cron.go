package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a Schedule described by a standard five-field cron line:
// minute hour day-of-month month day-of-week. Each field accepts *, n, n-m,
// */s, n-m/s and comma-separated lists of those. Day-of-month and
// day-of-week must both match.
//
//	"*/5 * * * *"  every 5 minutes
//	"0 3 * * *"    every day at 03:00
//	"0 0 * * 1"    every Monday at midnight
type CronExpression struct {
	raw      string
	minutes  uint64
	hours    uint64
	days     uint64
	months   uint64
	weekdays uint64
}

// Common expressions.
const (
	EveryMinute      = "* * * * *"
	Every5Minutes    = "*/5 * * * *"
	EveryHour        = "0 * * * *"
	EveryDayMidnight = "0 0 * * *"
	EveryNight3AM    = "0 3 * * *"
)

type cronField struct {
	name     string
	min, max int
}

var cronFields = [5]cronField{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// ParseCronExpression parses a five-field cron line.
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != len(cronFields) {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expr, len(fields))
	}

	var sets [5]uint64
	for i, f := range cronFields {
		set, err := parseCronField(fields[i], f.min, f.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field in %q: %w", f.name, expr, err)
		}
		sets[i] = set
	}

	return &CronExpression{
		raw:      strings.Join(fields, " "),
		minutes:  sets[0],
		hours:    sets[1],
		days:     sets[2],
		months:   sets[3],
		weekdays: sets[4],
	}, nil
}

// MustParseCronExpression is ParseCronExpression for constants; it panics on error.
func MustParseCronExpression(expr string) *CronExpression {
	ce, err := ParseCronExpression(expr)
	if err != nil {
		panic(err)
	}
	return ce
}

// parseCronField returns the field as a bit set over [min, max].
func parseCronField(field string, min, max int) (uint64, error) {
	var set uint64

	for _, part := range strings.Split(field, ",") {
		step := 1
		if rng, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid step %q", s)
			}
			step = n
			part = rng
		}

		var lo, hi int
		switch {
		case part == "*":
			lo, hi = min, max
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var err error
			if lo, err = strconv.Atoi(a); err != nil {
				return 0, fmt.Errorf("invalid range start %q", a)
			}
			if hi, err = strconv.Atoi(b); err != nil {
				return 0, fmt.Errorf("invalid range end %q", b)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", part)
			}
			lo, hi = v, v
			if step > 1 {
				hi = max
			}
		}

		if lo < min || hi > max || lo > hi {
			return 0, fmt.Errorf("range %d-%d outside [%d-%d]", lo, hi, min, max)
		}
		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}

	return set, nil
}

// String returns the normalized expression.
func (ce *CronExpression) String() string {
	return ce.raw
}

// Next returns the first matching minute strictly after t, in t's location.
// It returns the zero time when nothing matches within a year (for example "0 0 31 2 *").
func (ce *CronExpression) Next(t time.Time) time.Time {
	next := t.Truncate(time.Minute).Add(time.Minute)
	limit := next.AddDate(1, 0, 0)

	for next.Before(limit) {
		switch {
		case !has(ce.months, int(next.Month())):
			next = time.Date(next.Year(), next.Month()+1, 1, 0, 0, 0, 0, next.Location())
		case !has(ce.days, next.Day()) || !has(ce.weekdays, int(next.Weekday())):
			next = time.Date(next.Year(), next.Month(), next.Day()+1, 0, 0, 0, 0, next.Location())
		case !has(ce.hours, next.Hour()):
			next = time.Date(next.Year(), next.Month(), next.Day(), next.Hour()+1, 0, 0, 0, next.Location())
		case !has(ce.minutes, next.Minute()):
			next = next.Add(time.Minute)
		default:
			return next
		}
	}
	return time.Time{}
}

func has(set uint64, v int) bool {
	return set&(1<<uint(v)) != 0
}
