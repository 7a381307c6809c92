package task

import (
	"context"
	"time"
)

// Repository defines storage operations for tasks.
type Repository interface {
	// Create stores a new task.
	Create(ctx context.Context, t *Task) error

	// GetByID returns a task owned by ownerID without locking it.
	// Returns ErrTaskNotFound when the task is missing or belongs to someone else.
	GetByID(ctx context.Context, id, ownerID string) (*Task, error)

	// GetForUpdate returns a task owned by ownerID and locks it until the
	// surrounding transaction ends.
	// Returns ErrTaskNotFound when the task is missing or belongs to someone else.
	GetForUpdate(ctx context.Context, id, ownerID string) (*Task, error)

	// Update persists completion and penalty state.
	Update(ctx context.Context, t *Task) error

	// Delete removes a task owned by ownerID.
	// Returns ErrTaskNotFound when the task is missing or belongs to someone else.
	Delete(ctx context.Context, id, ownerID string) error

	// ListByOwner returns the owner's tasks, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Task, error)

	// FindOverdueForUpdate locks up to limit incomplete, unpenalized tasks whose
	// deadline is before now. Rows locked by another transaction are skipped.
	FindOverdueForUpdate(ctx context.Context, now time.Time, limit int) ([]*Task, error)
}
