package progression

import "context"

// Repository defines storage operations for progression profiles.
// Implementations live in infrastructure/persistence and are bound to a transaction.
type Repository interface {
	// Create stores a new profile.
	// Returns ErrProfileAlreadyExists if the user already has one.
	Create(ctx context.Context, profile *Profile) error

	// GetByUserID returns the profile without locking it.
	// Returns ErrProfileNotFound if the user has no profile.
	GetByUserID(ctx context.Context, userID string) (*Profile, error)

	// GetForUpdate returns the profile and holds an exclusive lock on it
	// until the surrounding transaction ends.
	// Returns ErrProfileNotFound if the user has no profile.
	GetForUpdate(ctx context.Context, userID string) (*Profile, error)

	// Update persists level, points and updated_at of a locked profile.
	Update(ctx context.Context, profile *Profile) error

	// Top returns profiles ordered by level and points, highest first.
	Top(ctx context.Context, limit int) ([]*Profile, error)
}
