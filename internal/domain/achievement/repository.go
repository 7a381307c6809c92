package achievement

import "context"

// TemplateRepository stores the shared achievement templates.
// Templates are reference data; operations on user progress never modify them.
type TemplateRepository interface {
	// Upsert inserts or replaces a template by ID. Used by catalog seeding only.
	Upsert(ctx context.Context, a *Achievement) error

	// GetByID returns a template.
	// Returns ErrAchievementNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Achievement, error)

	// List returns all templates ordered by name.
	List(ctx context.Context) ([]*Achievement, error)
}

// ProgressRepository stores per-user counters.
type ProgressRepository interface {
	// BulkCreate inserts one counter per element in a single round trip.
	// Returns ErrAchievementProvisioned if any (user, achievement) pair already exists.
	BulkCreate(ctx context.Context, rows []*Progress) error

	// ListOpenForUpdate locks and returns the user's incomplete counters whose
	// template matches category and unit type, together with those templates.
	ListOpenForUpdate(ctx context.Context, userID, category, unitType string) ([]Tracked, error)

	// Update persists progress, tier and completion.
	Update(ctx context.Context, p *Progress) error

	// ListByUser returns every counter of the user with its template.
	ListByUser(ctx context.Context, userID string) ([]Tracked, error)
}

// Tracked pairs a user counter with its template.
type Tracked struct {
	Achievement *Achievement
	Progress    *Progress
}
