package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUEST LIFECYCLE COMMANDS
// ACTIVE -> COMPLETED grants the reward exactly once; ACTIVE -> FAILED grants nothing.
// The status is read under the same row lock that guards the write, so of two
// concurrent transitions on one quest exactly one succeeds.
// ══════════════════════════════════════════════════════════════════════════════

// QuestTransitionCommand identifies the quest to transition and its owner.
type QuestTransitionCommand struct {
	QuestID string
	UserID  string
}

// Validate validates the command.
func (c QuestTransitionCommand) Validate() error {
	if err := shared.ValidateID(c.QuestID); err != nil {
		return err
	}
	return shared.ValidateID(c.UserID)
}

// QuestTransitionResult contains the quest after the transition.
type QuestTransitionResult struct {
	Quest *quest.Quest

	// Profile is set when a reward was granted.
	Profile *progression.Profile
	Change  *progression.Change

	Events []shared.Event
}

// QuestLifecycleHandler handles quest completion and failure.
type QuestLifecycleHandler struct {
	uow       uow.UnitOfWork
	ledger    *RewardLedger
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
}

// NewQuestLifecycleHandler creates a new QuestLifecycleHandler.
func NewQuestLifecycleHandler(
	unitOfWork uow.UnitOfWork,
	ledger *RewardLedger,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *QuestLifecycleHandler {
	return &QuestLifecycleHandler{
		uow:       unitOfWork,
		ledger:    ledger,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
	}
}

// Complete moves the quest to COMPLETED and grants its reward in one transaction.
// A zero reward skips the ledger but still commits the transition.
func (h *QuestLifecycleHandler) Complete(ctx context.Context, cmd QuestTransitionCommand) (*QuestTransitionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_quest: validation failed: %w", err)
	}

	var result *QuestTransitionResult
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		result = &QuestTransitionResult{}
		now := h.clock.Now()

		q, err := repos.Quests().GetForUpdate(ctx, cmd.QuestID, cmd.UserID)
		if err != nil {
			return err
		}
		if err := q.Complete(now); err != nil {
			return err
		}
		if err := repos.Quests().Update(ctx, q); err != nil {
			return fmt.Errorf("update quest: %w", err)
		}
		result.Quest = q
		result.Events = append(result.Events,
			shared.NewQuestEvent(shared.EventQuestCompleted, q.ID, q.OwnerID, q.Title, q.RewardPoints, now))

		if !q.HasReward() {
			return nil
		}

		grant, err := h.ledger.Apply(ctx, repos, cmd.UserID, q.RewardPoints, SourceQuest, q.ID, now)
		if err != nil {
			return err
		}
		result.Profile = grant.Profile
		result.Change = &grant.Change
		result.Events = append(result.Events, grant.Events...)
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "complete_quest", err, "quest_id", cmd.QuestID, "user_id", cmd.UserID)
		return nil, fmt.Errorf("complete_quest: %w", err)
	}

	h.logger.InfoContext(ctx, "quest completed",
		"quest_id", result.Quest.ID,
		"user_id", cmd.UserID,
		"reward", result.Quest.RewardPoints,
	)
	publishAll(ctx, h.publisher, h.logger, result.Events)
	return result, nil
}

// Fail moves the quest to FAILED. No points change hands.
func (h *QuestLifecycleHandler) Fail(ctx context.Context, cmd QuestTransitionCommand) (*QuestTransitionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("fail_quest: validation failed: %w", err)
	}

	var result *QuestTransitionResult
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		now := h.clock.Now()

		q, err := repos.Quests().GetForUpdate(ctx, cmd.QuestID, cmd.UserID)
		if err != nil {
			return err
		}
		if err := q.Fail(now); err != nil {
			return err
		}
		if err := repos.Quests().Update(ctx, q); err != nil {
			return fmt.Errorf("update quest: %w", err)
		}
		result = &QuestTransitionResult{
			Quest: q,
			Events: []shared.Event{
				shared.NewQuestEvent(shared.EventQuestFailed, q.ID, q.OwnerID, q.Title, q.RewardPoints, now),
			},
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "fail_quest", err, "quest_id", cmd.QuestID, "user_id", cmd.UserID)
		return nil, fmt.Errorf("fail_quest: %w", err)
	}

	publishAll(ctx, h.publisher, h.logger, result.Events)
	return result, nil
}
