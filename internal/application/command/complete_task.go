package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE TASK COMMAND
// incomplete -> complete, then the reward grant and the achievement accrual,
// all inside one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteTaskCommand identifies the task and its owner.
type CompleteTaskCommand struct {
	TaskID string
	UserID string
}

// Validate validates the command.
func (c CompleteTaskCommand) Validate() error {
	if err := shared.ValidateID(c.TaskID); err != nil {
		return err
	}
	return shared.ValidateID(c.UserID)
}

// CompleteTaskResult contains the task after completion.
type CompleteTaskResult struct {
	Task *task.Task

	// Profile is set when the task carried points.
	Profile *progression.Profile
	Change  *progression.Change

	AchievementsUpdated int
	Events              []shared.Event
}

// CompleteTaskHandler handles CompleteTaskCommand.
type CompleteTaskHandler struct {
	uow       uow.UnitOfWork
	ledger    *RewardLedger
	tracker   *AchievementTracker
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
}

// NewCompleteTaskHandler creates a new CompleteTaskHandler.
func NewCompleteTaskHandler(
	unitOfWork uow.UnitOfWork,
	ledger *RewardLedger,
	tracker *AchievementTracker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *CompleteTaskHandler {
	return &CompleteTaskHandler{
		uow:       unitOfWork,
		ledger:    ledger,
		tracker:   tracker,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
	}
}

// Handle executes the completion.
func (h *CompleteTaskHandler) Handle(ctx context.Context, cmd CompleteTaskCommand) (*CompleteTaskResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_task: validation failed: %w", err)
	}

	var result *CompleteTaskResult
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		result = &CompleteTaskResult{}
		now := h.clock.Now()

		t, err := repos.Tasks().GetForUpdate(ctx, cmd.TaskID, cmd.UserID)
		if err != nil {
			return err
		}
		if err := t.Complete(now); err != nil {
			return err
		}
		if err := repos.Tasks().Update(ctx, t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		result.Task = t
		result.Events = append(result.Events,
			shared.NewTaskCompletedEvent(t.ID, t.OwnerID, t.Points, t.Category, t.UnitType, t.UnitAmount, now))

		if t.Points > 0 {
			grant, err := h.ledger.Apply(ctx, repos, cmd.UserID, t.Points, SourceTask, t.ID, now)
			if err != nil {
				return err
			}
			result.Profile = grant.Profile
			result.Change = &grant.Change
			result.Events = append(result.Events, grant.Events...)
		}

		if h.tracker != nil && t.HasAccrual() {
			accrual, err := h.tracker.Accrue(ctx, repos, cmd.UserID, t.Category, t.UnitType, t.UnitAmount, now)
			if err != nil {
				return err
			}
			result.AchievementsUpdated = accrual.Updated
			result.Events = append(result.Events, accrual.Events...)
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "complete_task", err, "task_id", cmd.TaskID, "user_id", cmd.UserID)
		return nil, fmt.Errorf("complete_task: %w", err)
	}

	publishAll(ctx, h.publisher, h.logger, result.Events)
	return result, nil
}
