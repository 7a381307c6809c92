// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published only after the transaction that
// produced them has committed.
const (
	// Progression events
	EventPointsGranted EventType = "progress.points_granted"
	EventLevelUp       EventType = "progress.level_up"

	// Quest events
	EventQuestCreated   EventType = "quest.created"
	EventQuestCompleted EventType = "quest.completed"
	EventQuestFailed    EventType = "quest.failed"

	// Task events
	EventTaskCompleted EventType = "task.completed"
	EventTaskPenalized EventType = "task.penalized"

	// Achievement events
	EventAchievementTierReached EventType = "achievement.tier_reached"
	EventAchievementCompleted   EventType = "achievement.completed"

	// Habit events
	EventHabitTracked EventType = "habit.tracked"
	EventStreakBroken EventType = "habit.streak_broken"

	// System events
	EventUserProvisioned EventType = "system.user_provisioned"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped with the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// PointsGrantedEvent is emitted after a reward (or penalty) was applied to a profile.
type PointsGrantedEvent struct {
	BaseEvent
	UserID    string `json:"user_id"`
	Delta     int64  `json:"delta"`
	Level     int    `json:"level"`
	Points    int64  `json:"points"`
	Threshold int64  `json:"threshold"`
	Source    string `json:"source"` // e.g. "quest", "task", "deadline_penalty"
	SourceID  string `json:"source_id,omitempty"`
}

// Payload implements Event interface.
func (e PointsGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"delta":     e.Delta,
		"level":     e.Level,
		"points":    e.Points,
		"threshold": e.Threshold,
		"source":    e.Source,
		"source_id": e.SourceID,
	}
}

// NewPointsGrantedEvent creates a new PointsGrantedEvent.
func NewPointsGrantedEvent(userID string, delta int64, level int, points, threshold int64, source, sourceID string, at time.Time) PointsGrantedEvent {
	return PointsGrantedEvent{
		BaseEvent: NewBaseEvent(EventPointsGranted, userID, at),
		UserID:    userID,
		Delta:     delta,
		Level:     level,
		Points:    points,
		Threshold: threshold,
		Source:    source,
		SourceID:  sourceID,
	}
}

// LevelUpEvent is emitted when a grant resolves one or more level-ups.
type LevelUpEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// LevelsGained returns how many levels the grant crossed.
func (e LevelUpEvent) LevelsGained() int {
	return e.NewLevel - e.OldLevel
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID string, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		UserID:    userID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Quest Events
// ═══════════════════════════════════════════════════════════════════════════

// QuestEvent is emitted on quest creation and on terminal transitions.
type QuestEvent struct {
	BaseEvent
	QuestID      string `json:"quest_id"`
	UserID       string `json:"user_id"`
	Title        string `json:"title"`
	RewardPoints int64  `json:"reward_points"`
}

// Payload implements Event interface.
func (e QuestEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"quest_id":      e.QuestID,
		"user_id":       e.UserID,
		"title":         e.Title,
		"reward_points": e.RewardPoints,
	}
}

// NewQuestEvent creates a quest event of the given type.
func NewQuestEvent(eventType EventType, questID, userID, title string, rewardPoints int64, at time.Time) QuestEvent {
	return QuestEvent{
		BaseEvent:    NewBaseEvent(eventType, questID, at),
		QuestID:      questID,
		UserID:       userID,
		Title:        title,
		RewardPoints: rewardPoints,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Task Events
// ═══════════════════════════════════════════════════════════════════════════

// TaskCompletedEvent is emitted when a user completes a task.
type TaskCompletedEvent struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	UserID     string `json:"user_id"`
	Points     int64  `json:"points"`
	Category   string `json:"category,omitempty"`
	UnitType   string `json:"unit_type,omitempty"`
	UnitAmount int64  `json:"unit_amount,omitempty"`
}

// Payload implements Event interface.
func (e TaskCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id":     e.TaskID,
		"user_id":     e.UserID,
		"points":      e.Points,
		"category":    e.Category,
		"unit_type":   e.UnitType,
		"unit_amount": e.UnitAmount,
	}
}

// NewTaskCompletedEvent creates a new TaskCompletedEvent.
func NewTaskCompletedEvent(taskID, userID string, points int64, category, unitType string, unitAmount int64, at time.Time) TaskCompletedEvent {
	return TaskCompletedEvent{
		BaseEvent:  NewBaseEvent(EventTaskCompleted, taskID, at),
		TaskID:     taskID,
		UserID:     userID,
		Points:     points,
		Category:   category,
		UnitType:   unitType,
		UnitAmount: unitAmount,
	}
}

// TaskPenalizedEvent is emitted when an overdue task costs the owner points.
type TaskPenalizedEvent struct {
	BaseEvent
	TaskID  string `json:"task_id"`
	UserID  string `json:"user_id"`
	Penalty int64  `json:"penalty"`
}

// Payload implements Event interface.
func (e TaskPenalizedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"task_id": e.TaskID,
		"user_id": e.UserID,
		"penalty": e.Penalty,
	}
}

// NewTaskPenalizedEvent creates a new TaskPenalizedEvent.
func NewTaskPenalizedEvent(taskID, userID string, penalty int64, at time.Time) TaskPenalizedEvent {
	return TaskPenalizedEvent{
		BaseEvent: NewBaseEvent(EventTaskPenalized, taskID, at),
		TaskID:    taskID,
		UserID:    userID,
		Penalty:   penalty,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementEvent is emitted when a tier is reached or an achievement completes.
type AchievementEvent struct {
	BaseEvent
	UserID          string `json:"user_id"`
	AchievementID   string `json:"achievement_id"`
	AchievementName string `json:"achievement_name"`
	Tier            string `json:"tier"`
	Progress        int64  `json:"progress"`
}

// Payload implements Event interface.
func (e AchievementEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":          e.UserID,
		"achievement_id":   e.AchievementID,
		"achievement_name": e.AchievementName,
		"tier":             e.Tier,
		"progress":         e.Progress,
	}
}

// NewAchievementEvent creates an achievement event of the given type.
func NewAchievementEvent(eventType EventType, userID, achievementID, name, tier string, progress int64, at time.Time) AchievementEvent {
	return AchievementEvent{
		BaseEvent:       NewBaseEvent(eventType, userID, at),
		UserID:          userID,
		AchievementID:   achievementID,
		AchievementName: name,
		Tier:            tier,
		Progress:        progress,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Habit Events
// ═══════════════════════════════════════════════════════════════════════════

// HabitTrackedEvent is emitted when a habit check-in is recorded.
type HabitTrackedEvent struct {
	BaseEvent
	HabitID string    `json:"habit_id"`
	UserID  string    `json:"user_id"`
	Streak  int       `json:"streak"`
	Date    time.Time `json:"date"`
}

// Payload implements Event interface.
func (e HabitTrackedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"habit_id": e.HabitID,
		"user_id":  e.UserID,
		"streak":   e.Streak,
		"date":     e.Date.Format("2006-01-02"),
	}
}

// NewHabitTrackedEvent creates a new HabitTrackedEvent.
func NewHabitTrackedEvent(habitID, userID string, streak int, date, at time.Time) HabitTrackedEvent {
	return HabitTrackedEvent{
		BaseEvent: NewBaseEvent(EventHabitTracked, habitID, at),
		HabitID:   habitID,
		UserID:    userID,
		Streak:    streak,
		Date:      date,
	}
}

// StreakBrokenEvent is emitted when a check-in after a gap resets a streak.
type StreakBrokenEvent struct {
	BaseEvent
	HabitID        string `json:"habit_id"`
	UserID         string `json:"user_id"`
	PreviousStreak int    `json:"previous_streak"`
	DaysMissed     int    `json:"days_missed"`
}

// Payload implements Event interface.
func (e StreakBrokenEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"habit_id":        e.HabitID,
		"user_id":         e.UserID,
		"previous_streak": e.PreviousStreak,
		"days_missed":     e.DaysMissed,
	}
}

// NewStreakBrokenEvent creates a new StreakBrokenEvent.
func NewStreakBrokenEvent(habitID, userID string, previousStreak, daysMissed int, at time.Time) StreakBrokenEvent {
	return StreakBrokenEvent{
		BaseEvent:      NewBaseEvent(EventStreakBroken, habitID, at),
		HabitID:        habitID,
		UserID:         userID,
		PreviousStreak: previousStreak,
		DaysMissed:     daysMissed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// UserProvisionedEvent is emitted after a profile and achievement rows are created.
type UserProvisionedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	Achievements int    `json:"achievements"`
}

// Payload implements Event interface.
func (e UserProvisionedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      e.UserID,
		"achievements": e.Achievements,
	}
}

// NewUserProvisionedEvent creates a new UserProvisionedEvent.
func NewUserProvisionedEvent(userID string, achievements int, at time.Time) UserProvisionedEvent {
	return UserProvisionedEvent{
		BaseEvent:    NewBaseEvent(EventUserProvisioned, userID, at),
		UserID:       userID,
		Achievements: achievements,
	}
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
