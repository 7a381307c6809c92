package query

import (
	"context"
	"fmt"
	"time"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/habit"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/domain/task"
	"github.com/lifequest/lifequest-core/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET JOURNAL QUERY
// Everything a user currently has open: active quests, tasks and habits.
// ══════════════════════════════════════════════════════════════════════════════

// HabitDTO shows a habit with its streak as of the requested day.
type HabitDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Streak      int    `json:"streak"`
	LastTracked string `json:"last_tracked,omitempty"`
	DoneToday   bool   `json:"done_today"`
}

// Journal is the user's open work.
type Journal struct {
	Quests []*quest.Quest `json:"quests"`
	Tasks  []*task.Task   `json:"tasks"`
	Habits []HabitDTO     `json:"habits"`
}

// GetJournalHandler handles journal reads.
type GetJournalHandler struct {
	uow   uow.UnitOfWork
	clock shared.Clock
	loc   *time.Location
}

// NewGetJournalHandler creates a new GetJournalHandler. Streaks are read on
// the calendar day of loc; nil means UTC.
func NewGetJournalHandler(unitOfWork uow.UnitOfWork, clock shared.Clock, loc *time.Location) *GetJournalHandler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &GetJournalHandler{uow: unitOfWork, clock: clock, loc: loc}
}

// Handle returns the journal of userID. Completed tasks are left out.
func (h *GetJournalHandler) Handle(ctx context.Context, userID string) (*Journal, error) {
	if err := shared.ValidateID(userID); err != nil {
		return nil, shared.WrapError("query", "GetJournal", shared.ErrValidation, "invalid user id", err)
	}
	today := shared.DateOf(timeutil.In(h.clock.Now(), h.loc))

	j := &Journal{}
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		quests, err := repos.Quests().ListByOwner(ctx, userID, quest.StatusActive)
		if err != nil {
			return fmt.Errorf("list quests: %w", err)
		}
		tasks, err := repos.Tasks().ListByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		habits, err := repos.Habits().ListActiveByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("list habits: %w", err)
		}

		j.Quests = quests
		j.Tasks = make([]*task.Task, 0, len(tasks))
		for _, t := range tasks {
			if !t.Completed {
				j.Tasks = append(j.Tasks, t)
			}
		}
		j.Habits = make([]HabitDTO, 0, len(habits))
		for _, hb := range habits {
			j.Habits = append(j.Habits, newHabitDTO(hb, today))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get_journal: %w", err)
	}
	return j, nil
}

func newHabitDTO(h *habit.Habit, today shared.Date) HabitDTO {
	dto := HabitDTO{
		ID:     h.ID,
		Title:  h.Title,
		Streak: h.CurrentStreak(today),
	}
	if h.LastTracked != nil {
		dto.LastTracked = h.LastTracked.String()
		dto.DoneToday = h.LastTracked.Equal(today)
	}
	return dto
}
