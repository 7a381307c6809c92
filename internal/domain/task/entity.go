// Package task contains the task aggregate: a one-way incomplete -> complete item
// that rewards points and may feed achievement progress.
package task

import (
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// DefaultDeadlinePenalty is deducted once from the owner when a task misses its deadline.
const DefaultDeadlinePenalty int64 = 10

// Task is a reward-bearing to-do item owned by one user.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Points      int64
	Completed   bool

	// Category and UnitType select the achievements a completion accrues to;
	// UnitAmount is the quantity accrued. All three are optional.
	Category   string
	UnitType   string
	UnitAmount int64

	Deadline    *time.Time
	PenalizedAt *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask creates an incomplete task.
func NewTask(ownerID, title string, points int64, now time.Time) (*Task, error) {
	t := &Task{
		ID:        shared.NewID(),
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(title),
		Points:    points,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task fields.
func (t *Task) Validate() error {
	if err := shared.ValidateID(t.OwnerID); err != nil {
		return err
	}
	if t.Title == "" {
		return shared.ErrEmptyTaskTitle
	}
	if t.Points < 0 {
		return shared.ErrInvalidTaskPoints
	}
	if t.UnitAmount < 0 {
		return shared.ErrInvalidUnitAmount
	}
	return nil
}

// IsOwnedBy reports whether the task belongs to userID.
func (t *Task) IsOwnedBy(userID string) bool {
	return t.OwnerID == userID
}

// Complete marks the task done. Completion is terminal.
func (t *Task) Complete(now time.Time) error {
	if t.Completed {
		return shared.ErrTaskAlreadyCompleted
	}
	t.Completed = true
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// HasAccrual reports whether completing the task feeds achievement progress.
func (t *Task) HasAccrual() bool {
	return strings.TrimSpace(t.Category) != "" && strings.TrimSpace(t.UnitType) != "" && t.UnitAmount > 0
}

// IsOverdue reports whether an incomplete task has passed its deadline.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.Deadline != nil && t.Deadline.Before(now)
}

// NeedsPenalty reports whether the deadline sweep still has to charge this task.
func (t *Task) NeedsPenalty(now time.Time) bool {
	return t.IsOverdue(now) && t.PenalizedAt == nil
}

// MarkPenalized records that the deadline penalty was applied.
func (t *Task) MarkPenalized(now time.Time) error {
	if t.PenalizedAt != nil {
		return shared.NewDomainError("task", "Penalize", shared.ErrInvalidState, "task already penalized")
	}
	t.PenalizedAt = &now
	t.UpdatedAt = now
	return nil
}
