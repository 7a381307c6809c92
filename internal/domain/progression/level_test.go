package progression

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

func TestThreshold(t *testing.T) {
	cases := map[int]int64{
		1: 1000,
		2: 1500,
		3: 2250,
		4: 3375,
		5: 5063, // 5062.5 rounds half up
		6: 7594,
		7: 11391,
	}
	for level, want := range cases {
		assert.Equal(t, want, Threshold(level), "level %d", level)
	}

	assert.Equal(t, int64(1000), Threshold(0))
	assert.Equal(t, int64(1000), Threshold(-5))
	assert.Equal(t, int64(math.MaxInt64), Threshold(MaxLevel()+1))
}

func TestThreshold_StrictlyIncreasing(t *testing.T) {
	for level := 1; level < MaxLevel(); level++ {
		assert.Less(t, Threshold(level), Threshold(level+1), "level %d", level)
	}
}

func TestApply_ZeroDeltaIsIdentity(t *testing.T) {
	for level := 1; level <= 30; level++ {
		for _, points := range []int64{0, 1, Threshold(level) / 2, Threshold(level) - 1} {
			gotLevel, gotPoints := Apply(level, points, 0)
			assert.Equal(t, level, gotLevel)
			assert.Equal(t, points, gotPoints)
		}
	}
}

func TestApply_PostConditionHolds(t *testing.T) {
	deltas := []int64{1, 10, 999, 1000, 1500, 2500, 10_000, 1_000_000, math.MaxInt32}
	for level := 1; level <= 40; level++ {
		for _, points := range []int64{0, Threshold(level) - 1} {
			for _, delta := range deltas {
				newLevel, newPoints := Apply(level, points, delta)
				assert.GreaterOrEqual(t, newLevel, level)
				assert.True(t, IsValidState(newLevel, newPoints),
					"apply(%d, %d, %d) = (%d, %d)", level, points, delta, newLevel, newPoints)
			}
		}
	}
}

func TestApply_MultipleLevelUps(t *testing.T) {
	level, points := Apply(1, 0, 1500)
	assert.Equal(t, 2, level)
	assert.Equal(t, int64(500), points)

	// 1000 + 1500 + 2250 = 4750 crosses three thresholds exactly.
	level, points = Apply(1, 0, 4750)
	assert.Equal(t, 4, level)
	assert.Equal(t, int64(0), points)

	level, points = Apply(1, 999, 1)
	assert.Equal(t, 2, level)
	assert.Equal(t, int64(0), points)
}

func TestApply_NegativeDeltaClampsAndKeepsLevel(t *testing.T) {
	level, points := Apply(3, 50, -10)
	assert.Equal(t, 3, level)
	assert.Equal(t, int64(40), points)

	level, points = Apply(3, 5, -10)
	assert.Equal(t, 3, level)
	assert.Equal(t, int64(0), points)

	level, points = Apply(7, 0, math.MinInt64)
	assert.Equal(t, 7, level)
	assert.Equal(t, int64(0), points)
}

func TestApply_Additivity(t *testing.T) {
	l1, p1 := Apply(1, 0, 300)
	l1, p1 = Apply(l1, p1, 400)

	l2, p2 := Apply(1, 0, 700)

	assert.Equal(t, l2, l1)
	assert.Equal(t, p2, p1)
}

func TestAddPoints(t *testing.T) {
	sum, ok := AddPoints(10, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(15), sum)

	_, ok = AddPoints(math.MaxInt64-1, 2)
	assert.False(t, ok)
}

func TestPointsToNextLevel(t *testing.T) {
	assert.Equal(t, int64(1000), PointsToNextLevel(1, 0))
	assert.Equal(t, int64(1), PointsToNextLevel(2, 1499))
}

func TestProfile_Grant(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	p, err := NewProfile("user-1", now)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	later := now.Add(time.Hour)
	change, err := p.Grant(1500, later)
	require.NoError(t, err)

	assert.True(t, change.LeveledUp())
	assert.Equal(t, 1, change.OldLevel)
	assert.Equal(t, 2, change.NewLevel)
	assert.Equal(t, int64(500), change.NewPoints)
	assert.Equal(t, later, p.UpdatedAt)
	assert.NoError(t, p.Validate())
}

func TestProfile_GrantOverflow(t *testing.T) {
	p := &Profile{UserID: "user-1", Level: MaxLevel() + 1, Points: math.MaxInt64 - 10}

	_, err := p.Grant(100, time.Now())
	assert.ErrorIs(t, err, shared.ErrOverflow)
	assert.Equal(t, int64(math.MaxInt64-10), p.Points)
}

func TestProfile_Validate(t *testing.T) {
	p := &Profile{UserID: "user-1", Level: 1, Points: 1000}
	assert.ErrorIs(t, p.Validate(), shared.ErrIntegrity)

	p = &Profile{UserID: "", Level: 1}
	assert.ErrorIs(t, p.Validate(), shared.ErrInvalidID)
}
