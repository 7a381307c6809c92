package query

import (
	"context"
	"fmt"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// GetAchievementProgressHandler returns a user's progress report across all achievements.
type GetAchievementProgressHandler struct {
	uow uow.UnitOfWork
}

// NewGetAchievementProgressHandler creates a new GetAchievementProgressHandler.
func NewGetAchievementProgressHandler(unitOfWork uow.UnitOfWork) *GetAchievementProgressHandler {
	return &GetAchievementProgressHandler{uow: unitOfWork}
}

// Handle builds one view per counter, ordered by achievement name.
func (h *GetAchievementProgressHandler) Handle(ctx context.Context, userID string) ([]achievement.ProgressView, error) {
	if err := shared.ValidateID(userID); err != nil {
		return nil, shared.WrapError("query", "GetAchievementProgress", shared.ErrValidation, "invalid user id", err)
	}

	var views []achievement.ProgressView
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		rows, err := repos.Achievements().ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		views = make([]achievement.ProgressView, 0, len(rows))
		for _, row := range rows {
			views = append(views, achievement.BuildView(row.Achievement, row.Progress))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get_achievement_progress: %w", err)
	}
	return views, nil
}
