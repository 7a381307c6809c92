package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Top profiles by level and points. The cache is preferred; the database is
// the fallback when the cache is absent, empty or failing.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains the request parameters.
type GetLeaderboardQuery struct {
	// Limit is the number of entries (default 20, max 100).
	Limit int
}

// Validate normalizes the limit.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}

// LeaderboardEntryDTO is one ranked row.
type LeaderboardEntryDTO struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
	Points int64  `json:"points"`
}

// GetLeaderboardResult contains the ranked rows.
type GetLeaderboardResult struct {
	Entries   []LeaderboardEntryDTO `json:"entries"`
	FromCache bool                  `json:"from_cache"`
}

// GetLeaderboardHandler handles leaderboard reads.
type GetLeaderboardHandler struct {
	uow    uow.UnitOfWork
	cache  progression.LeaderboardCache
	logger *slog.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. cache may be nil.
func NewGetLeaderboardHandler(unitOfWork uow.UnitOfWork, cache progression.LeaderboardCache, logger *slog.Logger) *GetLeaderboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetLeaderboardHandler{uow: unitOfWork, cache: cache, logger: logger}
}

// Handle returns the top entries.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrValidation, err.Error(), err)
	}

	if h.cache != nil {
		standings, err := h.cache.Top(ctx, q.Limit)
		if err != nil {
			h.logger.WarnContext(ctx, "leaderboard cache read failed", "error", err)
		} else if len(standings) > 0 {
			result := &GetLeaderboardResult{FromCache: true}
			for i, s := range standings {
				result.Entries = append(result.Entries, LeaderboardEntryDTO{
					Rank:   i + 1,
					UserID: s.UserID,
					Level:  s.Level,
					Points: s.Points,
				})
			}
			return result, nil
		}
	}

	var profiles []*progression.Profile
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		top, err := repos.Profiles().Top(ctx, q.Limit)
		if err != nil {
			return err
		}
		profiles = top
		return nil
	})
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrServiceUnavailable, "failed to load leaderboard", err)
	}

	result := &GetLeaderboardResult{Entries: make([]LeaderboardEntryDTO, 0, len(profiles))}
	for i, p := range profiles {
		result.Entries = append(result.Entries, LeaderboardEntryDTO{
			Rank:   i + 1,
			UserID: p.UserID,
			Level:  p.Level,
			Points: p.Points,
		})
	}
	return result, nil
}
