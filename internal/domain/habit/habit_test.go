package habit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

func newHabit(t *testing.T) *Habit {
	t.Helper()
	h, err := NewHabit("user-1", "Meditate", "", time.Now())
	require.NoError(t, err)
	return h
}

func TestTrack_FirstCheckIn(t *testing.T) {
	h := newHabit(t)
	today := shared.NewDate(2024, 3, 10)

	res := h.Track(today, time.Now())
	assert.True(t, res.Tracked)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.LastTracked.Equal(today))
	assert.False(t, res.Reset)
}

func TestTrack_SameDayIsIdempotent(t *testing.T) {
	h := newHabit(t)
	day := shared.NewDate(2024, 3, 10)
	h.Track(day.AddDays(-1), time.Now())

	first := h.Track(day, time.Now())
	assert.True(t, first.Tracked)
	assert.Equal(t, 2, first.Streak)

	second := h.Track(day, time.Now())
	assert.False(t, second.Tracked)
	assert.Equal(t, 2, second.Streak)
	assert.True(t, second.LastTracked.Equal(day))
	assert.Equal(t, 2, h.Streak)
}

func TestTrack_ConsecutiveDaysExtendStreak(t *testing.T) {
	h := newHabit(t)
	start := shared.NewDate(2024, 2, 27)

	var res TrackResult
	for i := 0; i < 5; i++ {
		res = h.Track(start.AddDays(i), time.Now())
	}
	assert.Equal(t, 5, res.Streak)
	assert.True(t, res.LastTracked.Equal(shared.NewDate(2024, 3, 2)))
}

func TestTrack_GapResetsStreak(t *testing.T) {
	last := shared.NewDate(2024, 3, 1)
	h := &Habit{OwnerID: "user-1", Title: "Run", Streak: 30, LastTracked: &last, IsActive: true}

	res := h.Track(last.AddDays(3), time.Now())
	assert.True(t, res.Tracked)
	assert.Equal(t, 1, res.Streak)
	assert.True(t, res.Reset)
	assert.Equal(t, 30, res.PreviousStreak)
	assert.Equal(t, 2, res.DaysMissed)
}

func TestTrack_TwoDayGapResets(t *testing.T) {
	last := shared.NewDate(2024, 12, 31)
	h := &Habit{OwnerID: "user-1", Title: "Run", Streak: 4, LastTracked: &last, IsActive: true}

	res := h.Track(last.AddDays(2), time.Now())
	assert.Equal(t, 1, res.Streak)
}

func TestCurrentStreak(t *testing.T) {
	last := shared.NewDate(2024, 3, 1)
	h := &Habit{Streak: 7, LastTracked: &last}

	assert.Equal(t, 7, h.CurrentStreak(last))
	assert.Equal(t, 7, h.CurrentStreak(last.AddDays(1)))
	assert.Equal(t, 0, h.CurrentStreak(last.AddDays(2)))
}

func TestNewHabit_Validation(t *testing.T) {
	_, err := NewHabit("user-1", " ", "", time.Now())
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}
