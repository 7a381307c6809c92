package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEMPLATE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// TemplateRepository implements achievement.TemplateRepository for PostgreSQL.
type TemplateRepository struct {
	q Querier
}

// NewTemplateRepository creates a repository bound to q.
func NewTemplateRepository(q Querier) *TemplateRepository {
	return &TemplateRepository{q: q}
}

var _ achievement.TemplateRepository = (*TemplateRepository)(nil)

const templateColumns = `id, name, description, category, unit_type, requirements`

// Upsert inserts or replaces a template.
func (r *TemplateRepository) Upsert(ctx context.Context, a *achievement.Achievement) error {
	query := `
		INSERT INTO achievements (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			unit_type = EXCLUDED.unit_type,
			requirements = EXCLUDED.requirements
	`

	_, err := r.q.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Description,
		a.Category,
		a.UnitType,
		a.Requirements[:],
	)
	if err != nil {
		return fmt.Errorf("failed to upsert achievement %s: %w", a.ID, err)
	}
	return nil
}

// GetByID returns a template.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*achievement.Achievement, error) {
	query := `SELECT ` + templateColumns + ` FROM achievements WHERE id = $1`

	var a achievement.Achievement
	var reqs []int64
	err := r.q.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Description, &a.Category, &a.UnitType, &reqs)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	if err := setRequirements(&a, reqs); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns all templates ordered by name.
func (r *TemplateRepository) List(ctx context.Context) ([]*achievement.Achievement, error) {
	rows, err := r.q.Query(ctx, `SELECT `+templateColumns+` FROM achievements ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	templates := make([]*achievement.Achievement, 0)
	for rows.Next() {
		var a achievement.Achievement
		var reqs []int64
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Category, &a.UnitType, &reqs); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		if err := setRequirements(&a, reqs); err != nil {
			return nil, err
		}
		templates = append(templates, &a)
	}
	return templates, rows.Err()
}

func setRequirements(a *achievement.Achievement, reqs []int64) error {
	if len(reqs) != len(a.Requirements) {
		return shared.NewDomainError("achievement", "Load", shared.ErrIntegrity,
			fmt.Sprintf("achievement %s has %d tier requirements", a.ID, len(reqs)))
	}
	copy(a.Requirements[:], reqs)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements achievement.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	q Querier
}

// NewProgressRepository creates a repository bound to q.
func NewProgressRepository(q Querier) *ProgressRepository {
	return &ProgressRepository{q: q}
}

var _ achievement.ProgressRepository = (*ProgressRepository)(nil)

// trackedColumns selects a counter joined with its template.
const trackedColumns = `
	ua.id, ua.user_id, ua.achievement_id, ua.current_progress, ua.current_tier,
	ua.completed, ua.completed_at, ua.updated_at,
	a.id, a.name, a.description, a.category, a.unit_type, a.requirements`

// BulkCreate inserts all counters with one statement.
func (r *ProgressRepository) BulkCreate(ctx context.Context, rows []*achievement.Progress) error {
	if len(rows) == 0 {
		return nil
	}

	var (
		ids          = make([]string, len(rows))
		userIDs      = make([]string, len(rows))
		templateIDs  = make([]string, len(rows))
		progress     = make([]int64, len(rows))
		tiers        = make([]string, len(rows))
		completed    = make([]bool, len(rows))
		completedAts = make([]*time.Time, len(rows))
		updatedAts   = make([]time.Time, len(rows))
	)
	for i, p := range rows {
		ids[i] = p.ID
		userIDs[i] = p.UserID
		templateIDs[i] = p.AchievementID
		progress[i] = p.CurrentProgress
		tiers[i] = string(p.CurrentTier)
		completed[i] = p.Completed
		completedAts[i] = p.CompletedAt
		updatedAts[i] = p.UpdatedAt
	}

	query := `
		INSERT INTO user_achievements (
			id, user_id, achievement_id, current_progress, current_tier,
			completed, completed_at, updated_at
		)
		SELECT * FROM unnest(
			$1::text[], $2::text[], $3::text[], $4::bigint[], $5::text[],
			$6::boolean[], $7::timestamptz[], $8::timestamptz[]
		)
	`

	_, err := r.q.Exec(ctx, query, ids, userIDs, templateIDs, progress, tiers, completed, completedAts, updatedAts)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			return shared.ErrAchievementProvisioned
		case IsForeignKeyViolation(err):
			return shared.ErrAchievementNotFound
		}
		return fmt.Errorf("failed to provision achievements: %w", err)
	}
	return nil
}

// ListOpenForUpdate locks the user's incomplete counters whose template
// measures category and unitType. Matching ignores case and surrounding space.
func (r *ProgressRepository) ListOpenForUpdate(ctx context.Context, userID, category, unitType string) ([]achievement.Tracked, error) {
	query := `
		SELECT ` + trackedColumns + `
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		  AND NOT ua.completed
		  AND lower(btrim(a.category)) = $2
		  AND lower(btrim(a.unit_type)) = $3
		ORDER BY a.id
		FOR UPDATE OF ua
	`
	return r.list(ctx, query, userID, achievement.NormalizeKey(category), achievement.NormalizeKey(unitType))
}

// Update persists progress, tier and completion.
func (r *ProgressRepository) Update(ctx context.Context, p *achievement.Progress) error {
	query := `
		UPDATE user_achievements
		SET current_progress = $1, current_tier = $2, completed = $3, completed_at = $4, updated_at = $5
		WHERE id = $6
	`

	tag, err := r.q.Exec(ctx, query,
		p.CurrentProgress,
		string(p.CurrentTier),
		p.Completed,
		p.CompletedAt,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update achievement progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAchievementNotFound
	}
	return nil
}

// ListByUser returns every counter of the user, ordered by template name.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]achievement.Tracked, error) {
	query := `
		SELECT ` + trackedColumns + `
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		ORDER BY a.name, a.id
	`
	return r.list(ctx, query, userID)
}

func (r *ProgressRepository) list(ctx context.Context, query string, args ...any) ([]achievement.Tracked, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement progress: %w", err)
	}
	defer rows.Close()

	out := make([]achievement.Tracked, 0)
	for rows.Next() {
		t, err := scanTracked(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTracked(row pgx.Row) (achievement.Tracked, error) {
	var (
		p    achievement.Progress
		a    achievement.Achievement
		tier string
		reqs []int64
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.AchievementID,
		&p.CurrentProgress,
		&tier,
		&p.Completed,
		&p.CompletedAt,
		&p.UpdatedAt,
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Category,
		&a.UnitType,
		&reqs,
	)
	if err != nil {
		return achievement.Tracked{}, fmt.Errorf("failed to scan achievement progress: %w", err)
	}
	p.CurrentTier = achievement.Tier(tier)
	if err := setRequirements(&a, reqs); err != nil {
		return achievement.Tracked{}, err
	}
	return achievement.Tracked{Achievement: &a, Progress: &p}, nil
}
