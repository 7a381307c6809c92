package quest

import "context"

// Repository defines storage operations for quests.
type Repository interface {
	// Create stores a new quest.
	Create(ctx context.Context, q *Quest) error

	// GetByID returns a quest owned by ownerID without locking it.
	// Returns ErrQuestNotFound when the quest is missing or belongs to someone else.
	GetByID(ctx context.Context, id, ownerID string) (*Quest, error)

	// GetForUpdate returns a quest owned by ownerID and locks it until the
	// surrounding transaction ends. Ownership is part of the lookup.
	// Returns ErrQuestNotFound when the quest is missing or belongs to someone else.
	GetForUpdate(ctx context.Context, id, ownerID string) (*Quest, error)

	// Update persists status and transition timestamps.
	Update(ctx context.Context, q *Quest) error

	// ListByOwner returns the owner's quests, newest first. An empty status lists all.
	ListByOwner(ctx context.Context, ownerID string, status Status) ([]*Quest, error)
}
