package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACK HABIT COMMAND
// One check-in per calendar day. "Already tracked today" is a normal result,
// not an error.
// ══════════════════════════════════════════════════════════════════════════════

// TrackHabitCommand identifies the habit, its owner and the caller's calendar day.
type TrackHabitCommand struct {
	HabitID string
	UserID  string

	// Today is the caller's date. When zero, the handler clock decides.
	Today shared.Date
}

// Validate validates the command.
func (c TrackHabitCommand) Validate() error {
	if err := shared.ValidateID(c.HabitID); err != nil {
		return err
	}
	return shared.ValidateID(c.UserID)
}

// TrackHabitResult contains the streak after the check-in.
type TrackHabitResult struct {
	Tracked     bool
	Streak      int
	LastTracked shared.Date
	Events      []shared.Event
}

// HabitHandler handles habit check-ins, creation and deactivation.
type HabitHandler struct {
	uow       uow.UnitOfWork
	publisher shared.EventPublisher
	clock     shared.Clock
	loc       *time.Location
	logger    *slog.Logger
}

// NewHabitHandler creates a new HabitHandler.
func NewHabitHandler(
	unitOfWork uow.UnitOfWork,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *HabitHandler {
	return &HabitHandler{
		uow:       unitOfWork,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		loc:       time.UTC,
		logger:    loggerOrDefault(logger),
	}
}

// InLocation sets the zone whose calendar day counts as "today" when a
// command carries no date.
func (h *HabitHandler) InLocation(loc *time.Location) *HabitHandler {
	if loc != nil {
		h.loc = loc
	}
	return h
}

// Track records today's check-in.
func (h *HabitHandler) Track(ctx context.Context, cmd TrackHabitCommand) (*TrackHabitResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("track_habit: validation failed: %w", err)
	}

	today := cmd.Today
	if today.IsZero() {
		today = shared.DateOf(timeutil.In(h.clock.Now(), h.loc))
	}

	var result *TrackHabitResult
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		now := h.clock.Now()

		hb, err := repos.Habits().GetForUpdate(ctx, cmd.HabitID, cmd.UserID)
		if err != nil {
			return err
		}

		res := hb.Track(today, now)
		result = &TrackHabitResult{
			Tracked:     res.Tracked,
			Streak:      res.Streak,
			LastTracked: res.LastTracked,
		}
		if !res.Tracked {
			return nil
		}

		if err := repos.Habits().Update(ctx, hb); err != nil {
			return fmt.Errorf("update habit: %w", err)
		}

		if res.Reset {
			result.Events = append(result.Events,
				shared.NewStreakBrokenEvent(hb.ID, hb.OwnerID, res.PreviousStreak, res.DaysMissed, now))
		}
		result.Events = append(result.Events,
			shared.NewHabitTrackedEvent(hb.ID, hb.OwnerID, res.Streak, today.Time(), now))
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "track_habit", err, "habit_id", cmd.HabitID, "user_id", cmd.UserID)
		return nil, fmt.Errorf("track_habit: %w", err)
	}

	if !result.Tracked {
		h.logger.DebugContext(ctx, "habit already tracked today",
			"habit_id", cmd.HabitID,
			"date", today.String(),
		)
	}
	publishAll(ctx, h.publisher, h.logger, result.Events)
	return result, nil
}

// CreateHabitCommand contains the data for a new habit.
type CreateHabitCommand struct {
	UserID      string
	Title       string
	Description string
}

// Create stores a new active habit.
func (h *HabitHandler) Create(ctx context.Context, cmd CreateHabitCommand) (*habit.Habit, error) {
	if strings.TrimSpace(cmd.Title) == "" {
		return nil, fmt.Errorf("create_habit: validation failed: %w", shared.ErrEmptyHabitTitle)
	}

	hb, err := habit.NewHabit(cmd.UserID, cmd.Title, cmd.Description, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("create_habit: %w", err)
	}

	err = h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		return repos.Habits().Create(ctx, hb)
	})
	if err != nil {
		logFailure(ctx, h.logger, "create_habit", err, "user_id", cmd.UserID)
		return nil, fmt.Errorf("create_habit: %w", err)
	}
	return hb, nil
}

// Deactivate soft-deletes a habit; its streak history is kept.
func (h *HabitHandler) Deactivate(ctx context.Context, habitID, userID string) error {
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		hb, err := repos.Habits().GetForUpdate(ctx, habitID, userID)
		if err != nil {
			return err
		}
		hb.Deactivate(h.clock.Now())
		return repos.Habits().Update(ctx, hb)
	})
	if err != nil {
		logFailure(ctx, h.logger, "deactivate_habit", err, "habit_id", habitID, "user_id", userID)
		return fmt.Errorf("deactivate_habit: %w", err)
	}
	return nil
}
