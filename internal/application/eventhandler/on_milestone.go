package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON MILESTONE HANDLER
// Turns level-ups, achievement tiers and broken streaks into user-facing
// milestones and hands them to a Notifier.
// ═══════════════════════════════════════════════════════════════════════════

// MilestoneKind classifies a milestone.
type MilestoneKind string

const (
	MilestoneLevelUp        MilestoneKind = "level_up"
	MilestoneTierReached    MilestoneKind = "tier_reached"
	MilestoneAchievementWon MilestoneKind = "achievement_completed"
	MilestoneStreakBroken   MilestoneKind = "streak_broken"
	MilestoneQuestCompleted MilestoneKind = "quest_completed"
)

// Milestone is a message worth telling the user about.
type Milestone struct {
	UserID     string
	Kind       MilestoneKind
	Text       string
	OccurredAt time.Time
}

// Notifier delivers milestones. Delivery channels live outside this module.
type Notifier interface {
	Notify(ctx context.Context, m Milestone) error
}

// LogNotifier writes milestones to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(ctx context.Context, m Milestone) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "milestone",
		"user_id", m.UserID,
		"kind", m.Kind,
		"text", m.Text,
	)
	return nil
}

// OnMilestoneHandler builds milestones from events.
type OnMilestoneHandler struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewOnMilestoneHandler creates the handler.
func NewOnMilestoneHandler(notifier Notifier, logger *slog.Logger) *OnMilestoneHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &OnMilestoneHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_milestone"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnMilestoneHandler) Handle(event shared.Event) error {
	m, ok := BuildMilestone(event)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.notifier.Notify(ctx, m); err != nil {
		h.logger.Warn("failed to deliver milestone",
			"user_id", m.UserID,
			"kind", m.Kind,
			"error", err,
		)
		return fmt.Errorf("notify %s: %w", m.Kind, err)
	}
	return nil
}

// Subscribe registers the handler for every milestone-producing event.
func (h *OnMilestoneHandler) Subscribe(bus shared.EventSubscriber) error {
	for _, t := range []shared.EventType{
		shared.EventLevelUp,
		shared.EventAchievementTierReached,
		shared.EventAchievementCompleted,
		shared.EventStreakBroken,
		shared.EventQuestCompleted,
	} {
		if err := bus.Subscribe(t, h.Handle); err != nil {
			return err
		}
	}
	return nil
}

// BuildMilestone maps an event to its milestone. ok is false for events
// that are not milestones.
func BuildMilestone(event shared.Event) (Milestone, bool) {
	m := Milestone{OccurredAt: event.OccurredAt()}

	switch e := event.(type) {
	case shared.LevelUpEvent:
		m.UserID, m.Kind = e.UserID, MilestoneLevelUp
		if e.LevelsGained() > 1 {
			m.Text = fmt.Sprintf("Level %d reached, %d levels at once!", e.NewLevel, e.LevelsGained())
		} else {
			m.Text = fmt.Sprintf("Level %d reached!", e.NewLevel)
		}
	case shared.AchievementEvent:
		m.UserID = e.UserID
		if e.EventType() == shared.EventAchievementCompleted {
			m.Kind = MilestoneAchievementWon
			m.Text = fmt.Sprintf("Achievement %q completed.", e.AchievementName)
		} else {
			m.Kind = MilestoneTierReached
			m.Text = fmt.Sprintf("%s tier reached in %q.", e.Tier, e.AchievementName)
		}
	case shared.StreakBrokenEvent:
		m.UserID, m.Kind = e.UserID, MilestoneStreakBroken
		m.Text = fmt.Sprintf("Your %d-day streak ended. Start a new one today.", e.PreviousStreak)
	case shared.QuestEvent:
		if e.EventType() != shared.EventQuestCompleted {
			return Milestone{}, false
		}
		m.UserID, m.Kind = e.UserID, MilestoneQuestCompleted
		m.Text = fmt.Sprintf("Quest %q completed: +%d points.", e.Title, e.RewardPoints)
	default:
		return Milestone{}, false
	}
	return m, true
}
