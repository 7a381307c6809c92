package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY DEADLINE PENALTIES COMMAND
// Charges a fixed penalty once per overdue, incomplete task. The penalty goes
// through the reward ledger as a negative delta: points clamp at zero and the
// level never drops.
// ══════════════════════════════════════════════════════════════════════════════

// DeadlinePenaltyConfig configures the sweep.
type DeadlinePenaltyConfig struct {
	Penalty   int64
	BatchSize int
}

// DefaultDeadlinePenaltyConfig returns default configuration.
func DefaultDeadlinePenaltyConfig() DeadlinePenaltyConfig {
	return DeadlinePenaltyConfig{
		Penalty:   task.DefaultDeadlinePenalty,
		BatchSize: 100,
	}
}

// ApplyDeadlinePenaltiesResult summarizes one sweep.
type ApplyDeadlinePenaltiesResult struct {
	Penalized int
	Batches   int
}

// ApplyDeadlinePenaltiesHandler runs the sweep.
type ApplyDeadlinePenaltiesHandler struct {
	uow       uow.UnitOfWork
	ledger    *RewardLedger
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
	config    DeadlinePenaltyConfig
}

// NewApplyDeadlinePenaltiesHandler creates a new ApplyDeadlinePenaltiesHandler.
func NewApplyDeadlinePenaltiesHandler(
	unitOfWork uow.UnitOfWork,
	ledger *RewardLedger,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
	config DeadlinePenaltyConfig,
) *ApplyDeadlinePenaltiesHandler {
	defaults := DefaultDeadlinePenaltyConfig()
	if config.Penalty <= 0 {
		config.Penalty = defaults.Penalty
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &ApplyDeadlinePenaltiesHandler{
		uow:       unitOfWork,
		ledger:    ledger,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
		config:    config,
	}
}

// Handle processes overdue tasks batch by batch until none are left.
// Each batch is one transaction; a failing batch is logged and stops the sweep.
func (h *ApplyDeadlinePenaltiesHandler) Handle(ctx context.Context) (*ApplyDeadlinePenaltiesResult, error) {
	result := &ApplyDeadlinePenaltiesResult{}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := h.runBatch(ctx)
		if err != nil {
			logFailure(ctx, h.logger, "apply_deadline_penalties", err, "penalized", result.Penalized)
			return result, fmt.Errorf("apply_deadline_penalties: %w", err)
		}
		result.Batches++
		result.Penalized += n
		if n < h.config.BatchSize {
			break
		}
	}

	if result.Penalized > 0 {
		h.logger.InfoContext(ctx, "deadline penalties applied",
			"tasks", result.Penalized,
			"penalty", h.config.Penalty,
		)
	}
	return result, nil
}

func (h *ApplyDeadlinePenaltiesHandler) runBatch(ctx context.Context) (int, error) {
	var (
		count  int
		events []shared.Event
	)

	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		count = 0
		events = events[:0]
		now := h.clock.Now()

		overdue, err := repos.Tasks().FindOverdueForUpdate(ctx, now, h.config.BatchSize)
		if err != nil {
			return fmt.Errorf("find overdue tasks: %w", err)
		}

		for _, t := range overdue {
			if !t.NeedsPenalty(now) {
				continue
			}
			if err := t.MarkPenalized(now); err != nil {
				return err
			}
			if err := repos.Tasks().Update(ctx, t); err != nil {
				return fmt.Errorf("update task %s: %w", t.ID, err)
			}

			grant, err := h.ledger.Apply(ctx, repos, t.OwnerID, -h.config.Penalty, SourceDeadlinePenalty, t.ID, now)
			if err != nil {
				return err
			}
			events = append(events, shared.NewTaskPenalizedEvent(t.ID, t.OwnerID, h.config.Penalty, now))
			events = append(events, grant.Events...)
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	publishAll(ctx, h.publisher, h.logger, events)
	return count, nil
}
