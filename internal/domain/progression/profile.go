package progression

import (
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile is the per-user progression record. It is created when a user is
// provisioned and mutated only through the reward ledger.
type Profile struct {
	UserID    string
	Level     int
	Points    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile returns a fresh level-1 profile with no points.
func NewProfile(userID string, now time.Time) (*Profile, error) {
	if err := shared.ValidateID(userID); err != nil {
		return nil, err
	}
	return &Profile{
		UserID:    userID,
		Level:     MinLevel,
		Points:    0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the level/points invariant of a stored profile.
func (p *Profile) Validate() error {
	if err := shared.ValidateID(p.UserID); err != nil {
		return err
	}
	if !IsValidState(p.Level, p.Points) {
		return shared.ErrInvalidProfile
	}
	return nil
}

// Threshold returns the points needed to leave the profile's current level.
func (p *Profile) Threshold() int64 {
	return Threshold(p.Level)
}

// Change describes the effect of one grant on a profile.
type Change struct {
	Delta     int64
	OldLevel  int
	OldPoints int64
	NewLevel  int
	NewPoints int64
}

// LeveledUp reports whether the grant crossed at least one threshold.
func (c Change) LeveledUp() bool {
	return c.NewLevel > c.OldLevel
}

// Grant applies a points delta to the profile.
// Positive deltas that would overflow int64 are rejected with ErrPointsOverflow
// and leave the profile untouched.
func (p *Profile) Grant(delta int64, now time.Time) (Change, error) {
	change := Change{
		Delta:     delta,
		OldLevel:  p.Level,
		OldPoints: p.Points,
	}

	if delta > 0 {
		if _, ok := AddPoints(p.Points, delta); !ok {
			return change, shared.ErrPointsOverflow
		}
	}

	p.Level, p.Points = Apply(p.Level, p.Points, delta)
	p.UpdatedAt = now

	change.NewLevel = p.Level
	change.NewPoints = p.Points
	return change, nil
}
