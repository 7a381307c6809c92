package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABIT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements habit.Repository for PostgreSQL.
// Inactive rows are invisible to every lookup.
type HabitRepository struct {
	q Querier
}

// NewHabitRepository creates a repository bound to q.
func NewHabitRepository(q Querier) *HabitRepository {
	return &HabitRepository{q: q}
}

var _ habit.Repository = (*HabitRepository)(nil)

const habitColumns = `
	id, owner_id, title, description, streak, last_tracked, is_active, created_at, updated_at`

// Create inserts a new habit.
func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	query := `
		INSERT INTO habits (` + habitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		h.ID,
		h.OwnerID,
		h.Title,
		h.Description,
		h.Streak,
		dateArg(h.LastTracked),
		h.IsActive,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.NewDomainError("habit", "Create", shared.ErrAlreadyExists, "habit already exists")
		case IsForeignKeyViolation(err):
			return shared.ErrProfileNotFound
		}
		return fmt.Errorf("failed to create habit: %w", err)
	}
	return nil
}

// GetForUpdate returns an active habit owned by ownerID and locks its row.
func (r *HabitRepository) GetForUpdate(ctx context.Context, id, ownerID string) (*habit.Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE id = $1 AND owner_id = $2 AND is_active
		FOR UPDATE
	`
	return scanHabit(r.q.QueryRow(ctx, query, id, ownerID))
}

// Update persists streak, last-tracked date and the active flag.
func (r *HabitRepository) Update(ctx context.Context, h *habit.Habit) error {
	query := `
		UPDATE habits
		SET streak = $1, last_tracked = $2, is_active = $3, updated_at = $4
		WHERE id = $5
	`

	tag, err := r.q.Exec(ctx, query, h.Streak, dateArg(h.LastTracked), h.IsActive, h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrHabitNotFound
	}
	return nil
}

// ListActiveByOwner returns the owner's active habits, oldest first.
func (r *HabitRepository) ListActiveByOwner(ctx context.Context, ownerID string) ([]*habit.Habit, error) {
	query := `
		SELECT ` + habitColumns + `
		FROM habits
		WHERE owner_id = $1 AND is_active
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := make([]*habit.Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func scanHabit(row pgx.Row) (*habit.Habit, error) {
	var (
		h           habit.Habit
		lastTracked *time.Time
	)
	err := row.Scan(
		&h.ID,
		&h.OwnerID,
		&h.Title,
		&h.Description,
		&h.Streak,
		&lastTracked,
		&h.IsActive,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("failed to scan habit: %w", err)
	}
	if lastTracked != nil {
		d := shared.DateOf(*lastTracked)
		h.LastTracked = &d
	}
	return &h, nil
}

// dateArg converts a calendar date into a DATE parameter. pgx encodes the
// midnight-UTC time as that day.
func dateArg(d *shared.Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}
