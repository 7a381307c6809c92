package habit

import "context"

// Repository defines storage operations for habits.
// Every lookup filters by owner and by is_active; inactive habits are reported as ErrHabitNotFound.
type Repository interface {
	// Create stores a new habit.
	Create(ctx context.Context, h *Habit) error

	// GetForUpdate returns an active habit owned by ownerID and locks it until
	// the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id, ownerID string) (*Habit, error)

	// Update persists streak, last-tracked date and the active flag.
	Update(ctx context.Context, h *Habit) error

	// ListActiveByOwner returns the owner's active habits.
	ListActiveByOwner(ctx context.Context, ownerID string) ([]*Habit, error)
}
