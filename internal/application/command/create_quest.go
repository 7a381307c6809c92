package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/quest"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE QUEST COMMAND
// Quests come either from the user directly or from a generator response that
// embeds a structured payload block.
// ══════════════════════════════════════════════════════════════════════════════

// CreateQuestCommand contains the data for a new quest.
type CreateQuestCommand struct {
	UserID       string
	Type         quest.Type
	Title        string
	Description  string
	RewardPoints int64
	RewardOther  string
	PenaltyInfo  string
}

// Validate validates the command.
func (c CreateQuestCommand) Validate() error {
	if err := shared.ValidateID(c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" {
		return shared.ErrEmptyQuestTitle
	}
	if c.RewardPoints < 0 {
		return shared.ErrInvalidQuestReward
	}
	return nil
}

// CreateQuestResult contains the created quest.
type CreateQuestResult struct {
	Quest *quest.Quest

	// Reply is the generator response with the payload block replaced by a
	// confirmation line. Empty for direct creation.
	Reply string

	Events []shared.Event
}

// CreateQuestHandler creates quests.
type CreateQuestHandler struct {
	uow       uow.UnitOfWork
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
}

// NewCreateQuestHandler creates a new CreateQuestHandler.
func NewCreateQuestHandler(
	unitOfWork uow.UnitOfWork,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *CreateQuestHandler {
	return &CreateQuestHandler{
		uow:       unitOfWork,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
	}
}

// Handle creates an ACTIVE quest.
func (h *CreateQuestHandler) Handle(ctx context.Context, cmd CreateQuestCommand) (*CreateQuestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_quest: validation failed: %w", err)
	}

	now := h.clock.Now()
	q, err := quest.NewQuest(cmd.UserID, cmd.Type, cmd.Title, cmd.Description, cmd.RewardPoints, now)
	if err != nil {
		return nil, fmt.Errorf("create_quest: %w", err)
	}
	q.RewardOther = strings.TrimSpace(cmd.RewardOther)
	q.PenaltyInfo = strings.TrimSpace(cmd.PenaltyInfo)

	return h.store(ctx, q, "")
}

// FromResponseCommand carries a free-form generator response for one user.
type FromResponseCommand struct {
	UserID   string
	Response string
}

// HandleResponse looks for a payload block in the response and creates a quest
// from it. It returns (nil, nil) when the response holds no block.
func (h *CreateQuestHandler) HandleResponse(ctx context.Context, cmd FromResponseCommand) (*CreateQuestResult, error) {
	if err := shared.ValidateID(cmd.UserID); err != nil {
		return nil, fmt.Errorf("create_quest: validation failed: %w", err)
	}

	block, ok := quest.ExtractQuestBlock(cmd.Response)
	if !ok {
		return nil, nil
	}

	draft, err := quest.ParsePayload(block.Payload)
	if err != nil {
		h.logger.WarnContext(ctx, "quest payload rejected", "user_id", cmd.UserID, "error", err)
		return nil, fmt.Errorf("create_quest: %w", err)
	}

	q, err := quest.NewQuestFromDraft(cmd.UserID, draft, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("create_quest: %w", err)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{block.Before, fmt.Sprintf("New quest %q added to your journal.", q.Title), block.After} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return h.store(ctx, q, strings.Join(parts, "\n"))
}

func (h *CreateQuestHandler) store(ctx context.Context, q *quest.Quest, reply string) (*CreateQuestResult, error) {
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		return repos.Quests().Create(ctx, q)
	})
	if err != nil {
		logFailure(ctx, h.logger, "create_quest", err, "user_id", q.OwnerID)
		return nil, fmt.Errorf("create_quest: %w", err)
	}

	events := []shared.Event{
		shared.NewQuestEvent(shared.EventQuestCreated, q.ID, q.OwnerID, q.Title, q.RewardPoints, q.CreatedAt),
	}
	publishAll(ctx, h.publisher, h.logger, events)

	return &CreateQuestResult{Quest: q, Reply: reply, Events: events}, nil
}
