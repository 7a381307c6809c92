// Package habit contains the habit aggregate and its daily streak logic.
package habit

import (
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// Habit is a recurring daily action. Inactive habits are kept for history
// and behave as missing for every operation.
type Habit struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Streak      int
	LastTracked *shared.Date
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewHabit creates an active habit with no streak.
func NewHabit(ownerID, title, description string, now time.Time) (*Habit, error) {
	h := &Habit{
		ID:          shared.NewID(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := shared.ValidateID(h.OwnerID); err != nil {
		return nil, err
	}
	if h.Title == "" {
		return nil, shared.ErrEmptyHabitTitle
	}
	return h, nil
}

// TrackResult is the outcome of one check-in.
type TrackResult struct {
	Tracked     bool
	Streak      int
	LastTracked shared.Date

	// Reset is set when a gap of two or more days restarted an existing streak.
	Reset          bool
	PreviousStreak int
	DaysMissed     int
}

// Track records a check-in for today.
//
// A second check-in on the same day changes nothing and reports Tracked=false.
// A check-in the day after the last one extends the streak; anything else,
// including the first check-in ever, starts a new streak of 1.
func (h *Habit) Track(today shared.Date, now time.Time) TrackResult {
	if h.LastTracked != nil && h.LastTracked.Equal(today) {
		return TrackResult{Tracked: false, Streak: h.Streak, LastTracked: *h.LastTracked}
	}

	res := TrackResult{Tracked: true, PreviousStreak: h.Streak}
	switch {
	case h.LastTracked != nil && h.LastTracked.AddDays(1).Equal(today):
		h.Streak++
	default:
		if h.LastTracked != nil && h.Streak > 0 {
			res.Reset = true
			res.DaysMissed = today.DaysSince(*h.LastTracked) - 1
		}
		h.Streak = 1
	}

	h.LastTracked = &today
	h.UpdatedAt = now

	res.Streak = h.Streak
	res.LastTracked = today
	return res
}

// Deactivate soft-deletes the habit.
func (h *Habit) Deactivate(now time.Time) {
	h.IsActive = false
	h.UpdatedAt = now
}

// CurrentStreak returns the streak as seen on today: a streak whose last
// check-in is older than yesterday is already broken and reads as 0.
func (h *Habit) CurrentStreak(today shared.Date) int {
	if h.LastTracked == nil {
		return 0
	}
	if today.DaysSince(*h.LastTracked) > 1 {
		return 0
	}
	return h.Streak
}
