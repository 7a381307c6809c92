// Package jobs contains the scheduled jobs of the progression engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOCKING
// ══════════════════════════════════════════════════════════════════════════════

// Locker provides a cluster-wide try-lock so only one worker runs a job at a
// time. ok is false when another process holds the lock.
type Locker interface {
	TryLock(ctx context.Context, resource string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// withLock runs fn under the named lock. With a nil locker fn always runs.
// skipped is true when the lock was held elsewhere.
func withLock(ctx context.Context, locker Locker, resource string, ttl time.Duration, logger *slog.Logger, fn func(context.Context) error) (skipped bool, err error) {
	if locker == nil {
		return false, fn(ctx)
	}

	release, ok, err := locker.TryLock(ctx, resource, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", resource, err)
	}
	if !ok {
		logger.Info("job skipped, lock held by another worker", "lock", resource)
		return true, nil
	}
	defer func() {
		if rerr := release(context.Background()); rerr != nil {
			logger.Warn("failed to release lock", "lock", resource, "error", rerr)
		}
	}()

	return false, fn(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARD JOB
// ══════════════════════════════════════════════════════════════════════════════

// StandingsRebuilder replaces the whole ranked view at once.
type StandingsRebuilder interface {
	Rebuild(ctx context.Context, standings []progression.Standing) error
}

// RebuildLeaderboardConfig configures the rebuild job.
type RebuildLeaderboardConfig struct {
	// Limit caps how many profiles are loaded into the cache.
	Limit int

	// Timeout bounds one run.
	Timeout time.Duration

	// LockTTL is how long the cluster-wide lock is held at most.
	LockTTL time.Duration
}

// DefaultRebuildLeaderboardConfig returns sensible defaults.
func DefaultRebuildLeaderboardConfig() RebuildLeaderboardConfig {
	return RebuildLeaderboardConfig{
		Limit:   10000,
		Timeout: 2 * time.Minute,
		LockTTL: 5 * time.Minute,
	}
}

// RebuildStats describes the last completed run.
type RebuildStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Profiles    int
}

// RebuildLeaderboardJob reloads the leaderboard cache from the profiles
// table, correcting any drift left by lost or reordered events.
type RebuildLeaderboardJob struct {
	uow       uow.UnitOfWork
	rebuilder StandingsRebuilder
	locker    Locker
	logger    *slog.Logger
	config    RebuildLeaderboardConfig

	lastStats atomic.Pointer[RebuildStats]
}

// NewRebuildLeaderboardJob creates the job. locker may be nil.
func NewRebuildLeaderboardJob(
	unitOfWork uow.UnitOfWork,
	rebuilder StandingsRebuilder,
	locker Locker,
	logger *slog.Logger,
	config RebuildLeaderboardConfig,
) *RebuildLeaderboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultRebuildLeaderboardConfig()
	if config.Limit <= 0 {
		config.Limit = defaults.Limit
	}
	if config.LockTTL <= 0 {
		config.LockTTL = defaults.LockTTL
	}

	return &RebuildLeaderboardJob{
		uow:       unitOfWork,
		rebuilder: rebuilder,
		locker:    locker,
		logger:    logger.With("job", "rebuild_leaderboard"),
		config:    config,
	}
}

// Name returns the job name.
func (j *RebuildLeaderboardJob) Name() string {
	return "rebuild_leaderboard"
}

// Description returns a human-readable description.
func (j *RebuildLeaderboardJob) Description() string {
	return "Reloads the leaderboard cache from stored profiles"
}

// Run executes the rebuild.
func (j *RebuildLeaderboardJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	_, err := withLock(ctx, j.locker, j.Name(), j.config.LockTTL, j.logger, j.rebuild)
	return err
}

func (j *RebuildLeaderboardJob) rebuild(ctx context.Context) error {
	startedAt := time.Now()

	var profiles []*progression.Profile
	err := j.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		var err error
		profiles, err = repos.Profiles().Top(ctx, j.config.Limit)
		return err
	})
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}

	standings := make([]progression.Standing, len(profiles))
	for i, p := range profiles {
		standings[i] = progression.Standing{UserID: p.UserID, Level: p.Level, Points: p.Points}
	}

	if err := j.rebuilder.Rebuild(ctx, standings); err != nil {
		return fmt.Errorf("rebuild cache: %w", err)
	}

	completedAt := time.Now()
	stats := &RebuildStats{
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
		Profiles:    len(standings),
	}
	j.lastStats.Store(stats)

	j.logger.Info("leaderboard cache rebuilt",
		"profiles", stats.Profiles,
		"duration", stats.Duration.String(),
	)
	return nil
}

// LastStats returns the stats of the last successful run, or nil.
func (j *RebuildLeaderboardJob) LastStats() *RebuildStats {
	return j.lastStats.Load()
}
