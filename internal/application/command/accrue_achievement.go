package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT TRACKER
// Adds activity amounts to every open counter of the user that measures the
// same category and unit type, promoting tiers and completing at DIAMOND.
// Accrual is opportunistic: missing measure data is a no-op, never an error.
// ══════════════════════════════════════════════════════════════════════════════

// AchievementTracker accrues achievement progress.
type AchievementTracker struct {
	enabled bool
	logger  *slog.Logger
}

// NewAchievementTracker creates a new AchievementTracker. A disabled tracker
// accepts every call and changes nothing.
func NewAchievementTracker(enabled bool, logger *slog.Logger) *AchievementTracker {
	return &AchievementTracker{enabled: enabled, logger: loggerOrDefault(logger)}
}

// Accrual is the outcome of one accrue call.
type Accrual struct {
	Updated int
	Events  []shared.Event
}

// Accrue runs inside the caller's transaction.
func (t *AchievementTracker) Accrue(
	ctx context.Context,
	repos uow.Repos,
	userID, category, unitType string,
	amount int64,
	now time.Time,
) (*Accrual, error) {
	out := &Accrual{}
	category = achievement.NormalizeKey(category)
	unitType = achievement.NormalizeKey(unitType)
	if !t.enabled || category == "" || unitType == "" || amount <= 0 {
		return out, nil
	}

	rows, err := repos.Achievements().ListOpenForUpdate(ctx, userID, category, unitType)
	if err != nil {
		return nil, fmt.Errorf("achievement_tracker: lock progress: %w", err)
	}

	for _, row := range rows {
		res, err := row.Progress.Accrue(row.Achievement, amount, now)
		if err != nil {
			return nil, fmt.Errorf("achievement_tracker: accrue %s: %w", row.Achievement.ID, err)
		}
		if !res.Applied {
			continue
		}
		if err := repos.Achievements().Update(ctx, row.Progress); err != nil {
			return nil, fmt.Errorf("achievement_tracker: update %s: %w", row.Achievement.ID, err)
		}
		out.Updated++

		if res.TierChanged() {
			out.Events = append(out.Events, shared.NewAchievementEvent(shared.EventAchievementTierReached,
				userID, row.Achievement.ID, row.Achievement.Name, string(res.NewTier), row.Progress.CurrentProgress, now))
		}
		if res.JustComplete {
			out.Events = append(out.Events, shared.NewAchievementEvent(shared.EventAchievementCompleted,
				userID, row.Achievement.ID, row.Achievement.Name, string(res.NewTier), row.Progress.CurrentProgress, now))
		}
	}

	if out.Updated > 0 {
		t.logger.DebugContext(ctx, "achievement progress accrued",
			"user_id", userID,
			"category", category,
			"unit_type", unitType,
			"amount", amount,
			"updated", out.Updated,
		)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCRUE ACHIEVEMENT COMMAND
// Standalone accrual for activity recorded outside task completion.
// ══════════════════════════════════════════════════════════════════════════════

// AccrueAchievementCommand contains an activity measurement.
type AccrueAchievementCommand struct {
	UserID   string
	Category string
	UnitType string
	Amount   int64
}

// AccrueAchievementHandler handles AccrueAchievementCommand.
type AccrueAchievementHandler struct {
	uow       uow.UnitOfWork
	tracker   *AchievementTracker
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
}

// NewAccrueAchievementHandler creates a new AccrueAchievementHandler.
func NewAccrueAchievementHandler(
	unitOfWork uow.UnitOfWork,
	tracker *AchievementTracker,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *AccrueAchievementHandler {
	return &AccrueAchievementHandler{
		uow:       unitOfWork,
		tracker:   tracker,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
	}
}

// Handle accrues in its own transaction.
func (h *AccrueAchievementHandler) Handle(ctx context.Context, cmd AccrueAchievementCommand) (*Accrual, error) {
	if err := shared.ValidateID(cmd.UserID); err != nil {
		return nil, fmt.Errorf("accrue_achievement: validation failed: %w", err)
	}

	var accrual *Accrual
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		a, err := h.tracker.Accrue(ctx, repos, cmd.UserID, cmd.Category, cmd.UnitType, cmd.Amount, h.clock.Now())
		if err != nil {
			return err
		}
		accrual = a
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "accrue_achievement", err, "user_id", cmd.UserID)
		return nil, fmt.Errorf("accrue_achievement: %w", err)
	}

	publishAll(ctx, h.publisher, h.logger, accrual.Events)
	return accrual, nil
}
