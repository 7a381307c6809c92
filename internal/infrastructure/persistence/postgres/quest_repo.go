package postgres

import (
	"context"
	"fmt"

	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// QuestRepository implements quest.Repository for PostgreSQL.
type QuestRepository struct {
	q Querier
}

// NewQuestRepository creates a repository bound to q.
func NewQuestRepository(q Querier) *QuestRepository {
	return &QuestRepository{q: q}
}

var _ quest.Repository = (*QuestRepository)(nil)

const questColumns = `
	id, owner_id, type, title, description, reward_points, reward_other,
	penalty_info, status, created_at, completed_at, failed_at`

// Create inserts a new quest.
func (r *QuestRepository) Create(ctx context.Context, q *quest.Quest) error {
	query := `
		INSERT INTO quests (` + questColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.Exec(ctx, query,
		q.ID,
		q.OwnerID,
		string(q.Type),
		q.Title,
		q.Description,
		q.RewardPoints,
		q.RewardOther,
		q.PenaltyInfo,
		string(q.Status),
		q.CreatedAt,
		q.CompletedAt,
		q.FailedAt,
	)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.NewDomainError("quest", "Create", shared.ErrAlreadyExists, "quest already exists")
		case IsForeignKeyViolation(err):
			return shared.ErrProfileNotFound
		}
		return fmt.Errorf("failed to create quest: %w", err)
	}
	return nil
}

// GetByID returns a quest owned by ownerID.
func (r *QuestRepository) GetByID(ctx context.Context, id, ownerID string) (*quest.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE id = $1 AND owner_id = $2`
	return scanQuest(r.q.QueryRow(ctx, query, id, ownerID))
}

// GetForUpdate returns a quest owned by ownerID and locks its row.
func (r *QuestRepository) GetForUpdate(ctx context.Context, id, ownerID string) (*quest.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE id = $1 AND owner_id = $2 FOR UPDATE`
	return scanQuest(r.q.QueryRow(ctx, query, id, ownerID))
}

// Update persists status and transition timestamps.
func (r *QuestRepository) Update(ctx context.Context, q *quest.Quest) error {
	query := `
		UPDATE quests
		SET status = $1, completed_at = $2, failed_at = $3
		WHERE id = $4
	`

	tag, err := r.q.Exec(ctx, query, string(q.Status), q.CompletedAt, q.FailedAt, q.ID)
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrQuestNotFound
	}
	return nil
}

// ListByOwner returns the owner's quests, newest first. An empty status lists all.
func (r *QuestRepository) ListByOwner(ctx context.Context, ownerID string, status quest.Status) ([]*quest.Quest, error) {
	query := `
		SELECT ` + questColumns + `
		FROM quests
		WHERE owner_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY created_at DESC, id
	`

	rows, err := r.q.Query(ctx, query, ownerID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	quests := make([]*quest.Quest, 0)
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

func scanQuest(row pgx.Row) (*quest.Quest, error) {
	var (
		q             quest.Quest
		qtype, status string
	)
	err := row.Scan(
		&q.ID,
		&q.OwnerID,
		&qtype,
		&q.Title,
		&q.Description,
		&q.RewardPoints,
		&q.RewardOther,
		&q.PenaltyInfo,
		&status,
		&q.CreatedAt,
		&q.CompletedAt,
		&q.FailedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to scan quest: %w", err)
	}
	q.Type = quest.Type(qtype)
	q.Status = quest.Status(status)
	return &q, nil
}
