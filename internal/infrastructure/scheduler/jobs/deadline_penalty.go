package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEADLINE PENALTY JOB
// ══════════════════════════════════════════════════════════════════════════════

// PenaltySweeper charges overdue tasks.
type PenaltySweeper interface {
	Handle(ctx context.Context) (*command.ApplyDeadlinePenaltiesResult, error)
}

// DeadlinePenaltyJob runs the overdue-task sweep. Row locks keep concurrent
// sweeps from charging a task twice; the optional cluster lock keeps a single
// worker sweeping at a time.
type DeadlinePenaltyJob struct {
	sweeper PenaltySweeper
	locker  Locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewDeadlinePenaltyJob creates the job. locker may be nil.
func NewDeadlinePenaltyJob(sweeper PenaltySweeper, locker Locker, logger *slog.Logger) *DeadlinePenaltyJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeadlinePenaltyJob{
		sweeper: sweeper,
		locker:  locker,
		lockTTL: time.Minute,
		logger:  logger.With("job", "deadline_penalty"),
	}
}

// Name returns the job name.
func (j *DeadlinePenaltyJob) Name() string {
	return "deadline_penalty"
}

// Description returns a human-readable description.
func (j *DeadlinePenaltyJob) Description() string {
	return "Charges the deadline penalty for overdue, incomplete tasks"
}

// Run executes one sweep.
func (j *DeadlinePenaltyJob) Run(ctx context.Context) error {
	_, err := withLock(ctx, j.locker, j.Name(), j.lockTTL, j.logger, func(ctx context.Context) error {
		res, err := j.sweeper.Handle(ctx)
		if err != nil {
			return err
		}
		if res.Penalized > 0 {
			j.logger.Info("overdue tasks penalized",
				"tasks", res.Penalized,
				"batches", res.Batches,
			)
		}
		return nil
	})
	return err
}
