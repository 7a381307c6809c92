package progression

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by caches when the key is absent.
var ErrCacheMiss = errors.New("progression: cache miss")

// Standing is a profile's position data as kept in the leaderboard cache.
type Standing struct {
	UserID string
	Level  int
	Points int64
}

// Score orders standings: the level plus the fraction of the level already earned.
func (s Standing) Score() float64 {
	return float64(s.Level) + LevelProgress(s.Level, s.Points)
}

// LeaderboardCache keeps a ranked view of all profiles. It is a projection fed
// by committed grants and may lag behind the database.
type LeaderboardCache interface {
	// SetStanding inserts or replaces a user's standing.
	SetStanding(ctx context.Context, s Standing) error

	// Top returns the best standings, highest first.
	Top(ctx context.Context, limit int) ([]Standing, error)

	// Rank returns the 1-based position of the user, or ErrCacheMiss.
	Rank(ctx context.Context, userID string) (int, error)
}

// ProfileCache is a read-through cache of profiles.
type ProfileCache interface {
	// Get returns the cached profile or ErrCacheMiss.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Set stores the profile for ttl.
	Set(ctx context.Context, p *Profile, ttl time.Duration) error

	// Invalidate drops the cached profile.
	Invalidate(ctx context.Context, userID string) error
}
