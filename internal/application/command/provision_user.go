package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROVISION USER COMMAND
// Explicit step of account creation: one level-1 profile plus one zeroed
// counter per existing achievement template, in a single transaction.
// ══════════════════════════════════════════════════════════════════════════════

// ProvisionUserResult contains the created records.
type ProvisionUserResult struct {
	Profile      *progression.Profile
	Achievements int
	Events       []shared.Event
}

// ProvisionUserHandler provisions new users.
type ProvisionUserHandler struct {
	uow       uow.UnitOfWork
	publisher shared.EventPublisher
	clock     shared.Clock
	logger    *slog.Logger
}

// NewProvisionUserHandler creates a new ProvisionUserHandler.
func NewProvisionUserHandler(
	unitOfWork uow.UnitOfWork,
	publisher shared.EventPublisher,
	clock shared.Clock,
	logger *slog.Logger,
) *ProvisionUserHandler {
	return &ProvisionUserHandler{
		uow:       unitOfWork,
		publisher: publisher,
		clock:     clockOrDefault(clock),
		logger:    loggerOrDefault(logger),
	}
}

// Handle provisions userID. Provisioning an existing user fails with ErrProfileAlreadyExists.
func (h *ProvisionUserHandler) Handle(ctx context.Context, userID string) (*ProvisionUserResult, error) {
	if err := shared.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("provision_user: validation failed: %w", err)
	}

	var result *ProvisionUserResult
	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		now := h.clock.Now()

		profile, err := progression.NewProfile(userID, now)
		if err != nil {
			return err
		}
		if err := repos.Profiles().Create(ctx, profile); err != nil {
			return err
		}

		templates, err := repos.Templates().List(ctx)
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		rows := make([]*achievement.Progress, 0, len(templates))
		for _, a := range templates {
			rows = append(rows, achievement.NewProgress(userID, a.ID, now))
		}
		if len(rows) > 0 {
			if err := repos.Achievements().BulkCreate(ctx, rows); err != nil {
				return fmt.Errorf("create achievement progress: %w", err)
			}
		}

		result = &ProvisionUserResult{
			Profile:      profile,
			Achievements: len(rows),
			Events:       []shared.Event{shared.NewUserProvisionedEvent(userID, len(rows), now)},
		}
		return nil
	})
	if err != nil {
		logFailure(ctx, h.logger, "provision_user", err, "user_id", userID)
		return nil, fmt.Errorf("provision_user: %w", err)
	}

	h.logger.InfoContext(ctx, "user provisioned", "user_id", userID, "achievements", result.Achievements)
	publishAll(ctx, h.publisher, h.logger, result.Events)
	return result, nil
}

// SeedCatalogHandler installs achievement templates.
type SeedCatalogHandler struct {
	uow    uow.UnitOfWork
	logger *slog.Logger
}

// NewSeedCatalogHandler creates a new SeedCatalogHandler.
func NewSeedCatalogHandler(unitOfWork uow.UnitOfWork, logger *slog.Logger) *SeedCatalogHandler {
	return &SeedCatalogHandler{uow: unitOfWork, logger: loggerOrDefault(logger)}
}

// Handle upserts every template. Seeding the same catalog twice changes nothing.
func (h *SeedCatalogHandler) Handle(ctx context.Context, catalog []*achievement.Achievement) error {
	for _, a := range catalog {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("seed_catalog: %s: %w", a.ID, err)
		}
	}

	err := h.uow.Do(ctx, func(ctx context.Context, repos uow.Repos) error {
		for _, a := range catalog {
			if err := repos.Templates().Upsert(ctx, a); err != nil {
				return fmt.Errorf("upsert %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to seed achievement catalog", "error", err)
		return fmt.Errorf("seed_catalog: %w", err)
	}

	h.logger.InfoContext(ctx, "achievement catalog seeded", "templates", len(catalog))
	return nil
}
