package postgres

import (
	"context"
	"fmt"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements progression.Repository for PostgreSQL.
type ProfileRepository struct {
	q Querier
}

// NewProfileRepository creates a repository bound to q, usually a pgx.Tx.
func NewProfileRepository(q Querier) *ProfileRepository {
	return &ProfileRepository{q: q}
}

var _ progression.Repository = (*ProfileRepository)(nil)

const profileColumns = `user_id, level, points, created_at, updated_at`

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, p *progression.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query, p.UserID, p.Level, p.Points, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrProfileAlreadyExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByUserID returns a profile without locking it.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*progression.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return scanProfile(r.q.QueryRow(ctx, query, userID))
}

// GetForUpdate returns a profile and locks its row.
func (r *ProfileRepository) GetForUpdate(ctx context.Context, userID string) (*progression.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1 FOR UPDATE`
	return scanProfile(r.q.QueryRow(ctx, query, userID))
}

// Update persists level, points and updated_at.
func (r *ProfileRepository) Update(ctx context.Context, p *progression.Profile) error {
	query := `
		UPDATE profiles
		SET level = $1, points = $2, updated_at = $3
		WHERE user_id = $4
	`

	tag, err := r.q.Exec(ctx, query, p.Level, p.Points, p.UpdatedAt, p.UserID)
	if err != nil {
		if IsCheckViolation(err) {
			return shared.ErrInvalidProfile
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

// Top returns profiles by level, then points, highest first.
func (r *ProfileRepository) Top(ctx context.Context, limit int) ([]*progression.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		ORDER BY level DESC, points DESC, user_id
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*progression.Profile, 0, limit)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (*progression.Profile, error) {
	var p progression.Profile
	err := row.Scan(&p.UserID, &p.Level, &p.Points, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return &p, nil
}
