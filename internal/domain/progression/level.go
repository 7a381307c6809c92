// Package progression contains the leveling curve and the per-user progression profile.
package progression

import (
	"math"
	"math/big"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CURVE
// threshold(L) = round_half_up(1000 * 1.5^(L-1)), never below 1000.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// BaseThreshold is the number of points needed to leave level 1.
	BaseThreshold int64 = 1000

	// MinLevel is the level every profile starts at.
	MinLevel = 1
)

// thresholds[i] holds threshold(i+1). The table stops at the first level whose
// threshold no longer fits into int64; levels past it saturate at math.MaxInt64.
var thresholds = buildThresholds()

func buildThresholds() []int64 {
	table := make([]int64, 0, 96)

	num := big.NewInt(BaseThreshold) // 1000 * 3^(L-1)
	den := big.NewInt(1)             // 2^(L-1)
	three := big.NewInt(3)
	two := big.NewInt(2)

	for {
		// round half up: floor((2*num + den) / (2*den))
		n := new(big.Int).Mul(num, two)
		n.Add(n, den)
		d := new(big.Int).Mul(den, two)
		q := new(big.Int).Quo(n, d)
		if !q.IsInt64() {
			break
		}
		v := q.Int64()
		if v < BaseThreshold {
			v = BaseThreshold
		}
		table = append(table, v)

		num.Mul(num, three)
		den.Mul(den, two)
	}
	return table
}

// MaxLevel is the highest level whose threshold is representable.
func MaxLevel() int {
	return len(thresholds)
}

// Threshold returns the number of points required to advance from level to level+1.
// Levels below MinLevel are treated as MinLevel.
func Threshold(level int) int64 {
	if level < MinLevel {
		level = MinLevel
	}
	if level > len(thresholds) {
		return math.MaxInt64
	}
	return thresholds[level-1]
}

// Apply resolves a points delta against (level, points) and returns the new pair.
//
// A positive delta is added and then every crossed threshold is consumed,
// possibly several in one call. A negative delta is a penalty: points are
// clamped at zero and the level never decreases. Apply saturates instead of
// overflowing; callers that must reject overflow use AddPoints first.
func Apply(level int, points, delta int64) (int, int64) {
	if level < MinLevel {
		level = MinLevel
	}
	if points < 0 {
		points = 0
	}

	if delta < 0 {
		points += delta
		if points < 0 {
			points = 0
		}
		return level, points
	}

	sum, ok := AddPoints(points, delta)
	if !ok {
		sum = math.MaxInt64
	}

	threshold := Threshold(level)
	for threshold != math.MaxInt64 && sum >= threshold {
		sum -= threshold
		level++
		threshold = Threshold(level)
	}
	return level, sum
}

// AddPoints adds a non-negative delta to points and reports false on int64 overflow.
func AddPoints(points, delta int64) (int64, bool) {
	if delta > 0 && points > math.MaxInt64-delta {
		return 0, false
	}
	return points + delta, true
}

// PointsToNextLevel returns how many points are missing to reach the next level.
func PointsToNextLevel(level int, points int64) int64 {
	remaining := Threshold(level) - points
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LevelProgress returns the fraction [0, 1) of the current level already earned.
func LevelProgress(level int, points int64) float64 {
	threshold := Threshold(level)
	if threshold <= 0 {
		return 0
	}
	p := float64(points) / float64(threshold)
	if p < 0 {
		return 0
	}
	if p >= 1 {
		return math.Nextafter(1, 0)
	}
	return p
}

// IsValidState reports whether (level, points) satisfies 0 <= points < threshold(level).
func IsValidState(level int, points int64) bool {
	return level >= MinLevel && points >= 0 && points < Threshold(level)
}
