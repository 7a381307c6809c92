package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// TaskRepository implements task.Repository for PostgreSQL.
type TaskRepository struct {
	q Querier
}

// NewTaskRepository creates a repository bound to q.
func NewTaskRepository(q Querier) *TaskRepository {
	return &TaskRepository{q: q}
}

var _ task.Repository = (*TaskRepository)(nil)

const taskColumns = `
	id, owner_id, title, description, points, completed, category, unit_type,
	unit_amount, deadline, penalized_at, completed_at, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.Exec(ctx, query,
		t.ID,
		t.OwnerID,
		t.Title,
		t.Description,
		t.Points,
		t.Completed,
		t.Category,
		t.UnitType,
		t.UnitAmount,
		t.Deadline,
		t.PenalizedAt,
		t.CompletedAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.NewDomainError("task", "Create", shared.ErrAlreadyExists, "task already exists")
		case IsForeignKeyViolation(err):
			return shared.ErrProfileNotFound
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID returns a task owned by ownerID.
func (r *TaskRepository) GetByID(ctx context.Context, id, ownerID string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	return scanTask(r.q.QueryRow(ctx, query, id, ownerID))
}

// GetForUpdate returns a task owned by ownerID and locks its row.
func (r *TaskRepository) GetForUpdate(ctx context.Context, id, ownerID string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2 FOR UPDATE`
	return scanTask(r.q.QueryRow(ctx, query, id, ownerID))
}

// Update persists editable fields together with completion and penalty state.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	query := `
		UPDATE tasks SET
			title = $1,
			description = $2,
			points = $3,
			completed = $4,
			category = $5,
			unit_type = $6,
			unit_amount = $7,
			deadline = $8,
			penalized_at = $9,
			completed_at = $10,
			updated_at = $11
		WHERE id = $12
	`

	tag, err := r.q.Exec(ctx, query,
		t.Title,
		t.Description,
		t.Points,
		t.Completed,
		t.Category,
		t.UnitType,
		t.UnitAmount,
		t.Deadline,
		t.PenalizedAt,
		t.CompletedAt,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}
	return nil
}

// Delete removes a task owned by ownerID.
func (r *TaskRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing
// ─────────────────────────────────────────────────────────────────────────────

// ListByOwner returns the owner's tasks, newest first.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`
	return r.list(ctx, query, ownerID)
}

// FindOverdueForUpdate locks up to limit tasks that are past their deadline,
// incomplete and not yet penalized, earliest deadline first. Rows held by
// another sweep are skipped so concurrent workers never charge a task twice.
func (r *TaskRepository) FindOverdueForUpdate(ctx context.Context, now time.Time, limit int) ([]*task.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE completed = FALSE
		  AND penalized_at IS NULL
		  AND deadline IS NOT NULL
		  AND deadline < $1
		ORDER BY deadline
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	return r.list(ctx, query, now, limit)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Title,
		&t.Description,
		&t.Points,
		&t.Completed,
		&t.Category,
		&t.UnitType,
		&t.UnitAmount,
		&t.Deadline,
		&t.PenalizedAt,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return &t, nil
}
