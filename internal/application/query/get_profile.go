// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Cache-aside read of a user's progression.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultProfileTTL is how long a cached profile stays valid.
const DefaultProfileTTL = 5 * time.Minute

// ProfileDTO is the read model of a progression profile.
type ProfileDTO struct {
	UserID       string  `json:"user_id"`
	Level        int     `json:"level"`
	Points       int64   `json:"points"`
	Threshold    int64   `json:"threshold"`
	PointsToNext int64   `json:"points_to_next"`
	Progress     float64 `json:"progress"`
	Rank         int     `json:"rank,omitempty"`
}

// NewProfileDTO builds the read model from a profile.
func NewProfileDTO(p *progression.Profile) ProfileDTO {
	return ProfileDTO{
		UserID:       p.UserID,
		Level:        p.Level,
		Points:       p.Points,
		Threshold:    progression.Threshold(p.Level),
		PointsToNext: progression.PointsToNextLevel(p.Level, p.Points),
		Progress:     progression.LevelProgress(p.Level, p.Points),
	}
}

// GetProfileHandler handles profile reads.
type GetProfileHandler struct {
	uow         uow.UnitOfWork
	cache       progression.ProfileCache
	leaderboard progression.LeaderboardCache
	ttl         time.Duration
	logger      *slog.Logger
}

// NewGetProfileHandler creates a new GetProfileHandler. Both caches are optional.
func NewGetProfileHandler(
	unitOfWork uow.UnitOfWork,
	cache progression.ProfileCache,
	leaderboard progression.LeaderboardCache,
	ttl time.Duration,
	logger *slog.Logger,
) *GetProfileHandler {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GetProfileHandler{
		uow:         unitOfWork,
		cache:       cache,
		leaderboard: leaderboard,
		ttl:         ttl,
		logger:      logger,
	}
}

// Handle returns the user's profile.
func (h *GetProfileHandler) Handle(ctx context.Context, userID string) (*ProfileDTO, error) {
	if err := shared.ValidateID(userID); err != nil {
		return nil, shared.WrapError("query", "GetProfile", shared.ErrValidation, "invalid user id", err)
	}

	profile, err := h.fromCache(ctx, userID)
	if err != nil {
		err = h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
			p, err := repos.Profiles().GetByUserID(ctx, userID)
			if err != nil {
				return err
			}
			profile = p
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("get_profile: %w", err)
		}
		h.toCache(ctx, profile)
	}

	dto := NewProfileDTO(profile)
	if h.leaderboard != nil {
		if rank, err := h.leaderboard.Rank(ctx, userID); err == nil {
			dto.Rank = rank
		}
	}
	return &dto, nil
}

func (h *GetProfileHandler) fromCache(ctx context.Context, userID string) (*progression.Profile, error) {
	if h.cache == nil {
		return nil, progression.ErrCacheMiss
	}
	p, err := h.cache.Get(ctx, userID)
	if err != nil && !errors.Is(err, progression.ErrCacheMiss) {
		h.logger.WarnContext(ctx, "profile cache read failed", "user_id", userID, "error", err)
	}
	return p, err
}

func (h *GetProfileHandler) toCache(ctx context.Context, p *progression.Profile) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, p, h.ttl); err != nil {
		h.logger.WarnContext(ctx, "profile cache write failed", "user_id", p.UserID, "error", err)
	}
}
