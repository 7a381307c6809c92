package command

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
// REWARD LEDGER
// Applies a points delta to a user's profile under an exclusive row lock.
// It never opens its own transaction: callers pass the repositories of the
// transaction that also performs their state change.
// ══════════════════════════════════════════════════════════════════════════════

// Grant sources.
const (
	SourceManual          = "manual"
	SourceQuest           = "quest"
	SourceTask            = "task"
	SourceDeadlinePenalty = "deadline_penalty"
)

// RewardLedger grants and deducts points.
type RewardLedger struct {
	logger *slog.Logger
}

// NewRewardLedger creates a new RewardLedger.
func NewRewardLedger(logger *slog.Logger) *RewardLedger {
	return &RewardLedger{logger: loggerOrDefault(logger)}
}

// Grant is the outcome of one ledger entry.
type Grant struct {
	Profile *progression.Profile
	Change  progression.Change
	Events  []shared.Event
}

// Apply locks the profile, resolves the delta through the level curve and
// writes the result back. A missing profile is an integrity violation and is
// logged at error severity.
func (l *RewardLedger) Apply(
	ctx context.Context,
	repos uow.Repos,
	userID string,
	delta int64,
	source, sourceID string,
	now time.Time,
) (*Grant, error) {
	profile, err := repos.Profiles().GetForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrProfileNotFound) {
			l.logger.ErrorContext(ctx, "progression profile missing",
				"user_id", userID,
				"source", source,
				"source_id", sourceID,
			)
		}
		return nil, fmt.Errorf("reward_ledger: lock profile: %w", err)
	}

	change, err := profile.Grant(delta, now)
	if err != nil {
		return nil, fmt.Errorf("reward_ledger: apply delta: %w", err)
	}

	if err := repos.Profiles().Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("reward_ledger: update profile: %w", err)
	}

	events := []shared.Event{
		shared.NewPointsGrantedEvent(userID, delta, profile.Level, profile.Points, profile.Threshold(), source, sourceID, now),
	}
	if change.LeveledUp() {
		events = append(events, shared.NewLevelUpEvent(userID, change.OldLevel, change.NewLevel, now))
	}

	return &Grant{Profile: profile, Change: change, Events: events}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GRANT POINTS COMMAND
// Standalone ledger entry, e.g. an admin adjustment or an external reward.
// ══════════════════════════════════════════════════════════════════════════════

// GrantPointsCommand contains the data for a standalone grant.
type GrantPointsCommand struct {
	UserID   string
	Delta    int64
	Source   string
	SourceID string
}

// Validate validates the command.
func (c GrantPointsCommand) Validate() error {
	if err := shared.ValidateID(c.UserID); err != nil {
		return err
	}
	return nil
}

// GrantPointsResult contains the profile after the grant.
type GrantPointsResult struct {
	Profile *progression.Profile
	Change  progression.Change
	Events  []shared.Event
}

// GrantPointsHandler handles GrantPointsCommand.
type GrantPointsHandler struct {
	uow       uow.UnitOfWork
	ledger    *RewardLedger
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
}

// NewGrantPointsHandler creates a new GrantPointsHandler.
func NewGrantPointsHandler(
	unitOfWork uow.UnitOfWork,
	ledger *RewardLedger,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *GrantPointsHandler {
	return &GrantPointsHandler{
		uow:       unitOfWork,
		ledger:    ledger,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
	}
}

// Handle executes the grant in its own transaction.
func (h *GrantPointsHandler) Handle(ctx context.Context, cmd GrantPointsCommand) (*GrantPointsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("grant_points: validation failed: %w", err)
	}
	source := cmd.Source
	if source == "" {
		source = SourceManual
	}

	var grant *Grant
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		g, err := h.ledger.Apply(ctx, repos, cmd.UserID, cmd.Delta, source, cmd.SourceID, h.clock.Now())
		if err != nil {
			return err
		}
		grant = g
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "grant_points", err, "user_id", cmd.UserID, "delta", cmd.Delta)
		return nil, fmt.Errorf("grant_points: %w", err)
	}

	publishAll(ctx, h.publisher, h.logger, grant.Events)

	return &GrantPointsResult{
		Profile: grant.Profile,
		Change:  grant.Change,
		Events:  grant.Events,
	}, nil
}
