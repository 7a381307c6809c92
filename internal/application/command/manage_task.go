package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"
)

// CreateTaskCommand contains the data for a new task.
type CreateTaskCommand struct {
	UserID      string
	Title       string
	Description string
	Points      int64
	Category    string
	UnitType    string
	UnitAmount  int64
	Deadline    *time.Time
}

// Validate validates the command.
func (c CreateTaskCommand) Validate() error {
	if err := shared.ValidateID(c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return shared.ErrEmptyTaskTitle
	}
	if c.Points < 0 {
		return shared.ErrInvalidTaskPoints
	}
	if c.UnitAmount < 0 {
		return shared.ErrInvalidUnitAmount
	}
	return nil
}

// TaskHandler creates and deletes tasks.
type TaskHandler struct {
	uow    uow.UnitOfWork
	clock  shared.Clock
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(unitOfWork uow.UnitOfWork, clock shared.Clock, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		uow:    unitOfWork,
		clock:  clockOrDefault(clock),
		logger: loggerOrDefault(logger),
	}
}

// Create stores a new incomplete task.
func (h *TaskHandler) Create(ctx context.Context, cmd CreateTaskCommand) (*task.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_task: validation failed: %w", err)
	}

	t, err := task.NewTask(cmd.UserID, cmd.Title, cmd.Points, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("create_task: %w", err)
	}
	t.Description = strings.TrimSpace(cmd.Description)
	t.Category = strings.TrimSpace(cmd.Category)
	t.UnitType = strings.TrimSpace(cmd.UnitType)
	t.UnitAmount = cmd.UnitAmount
	t.Deadline = cmd.Deadline

	err = h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		return repos.Tasks().Create(ctx, t)
	})
	if err != nil {
		logFailure(ctx, h.logger, "create_task", err, "user_id", cmd.UserID)
		return nil, fmt.Errorf("create_task: %w", err)
	}
	return t, nil
}

// Delete removes a task owned by userID.
func (h *TaskHandler) Delete(ctx context.Context, taskID, userID string) error {
	if err := shared.ValidateID(taskID); err != nil {
		return fmt.Errorf("delete_task: validation failed: %w", err)
	}

	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		return repos.Tasks().Delete(ctx, taskID, userID)
	})
	if err != nil {
		logFailure(ctx, h.logger, "delete_task", err, "task_id", taskID, "user_id", userID)
		return fmt.Errorf("delete_task: %w", err)
	}
	return nil
}
