// Package eventhandler contains handlers for committed domain events.
// Handlers only maintain derived state (caches, notifications); a failing
// handler never affects the operation that produced the event.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON POINTS GRANTED HANDLER
// Keeps the leaderboard cache and the profile cache in step with the ledger.
// ═══════════════════════════════════════════════════════════════════════════

// OnPointsGrantedHandler projects committed grants into the caches.
type OnPointsGrantedHandler struct {
	leaderboard progression.LeaderboardCache
	profiles    progression.ProfileCache
	timeout     time.Duration
	logger      *slog.Logger
}

// NewOnPointsGrantedHandler creates the handler. Either cache may be nil.
func NewOnPointsGrantedHandler(
	leaderboard progression.LeaderboardCache,
	profiles progression.ProfileCache,
	logger *slog.Logger,
) *OnPointsGrantedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnPointsGrantedHandler{
		leaderboard: leaderboard,
		profiles:    profiles,
		timeout:     3 * time.Second,
		logger:      logger.With("handler", "on_points_granted"),
	}
}

// Handle implements shared.EventHandler for points_granted and user_provisioned.
func (h *OnPointsGrantedHandler) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var standing progression.Standing
	switch e := event.(type) {
	case shared.PointsGrantedEvent:
		standing = progression.Standing{UserID: e.UserID, Level: e.Level, Points: e.Points}
	case shared.UserProvisionedEvent:
		standing = progression.Standing{UserID: e.UserID, Level: progression.MinLevel}
	default:
		h.logger.Warn("unexpected event", "event_type", event.EventType())
		return nil
	}

	if h.profiles != nil {
		if err := h.profiles.Invalidate(ctx, standing.UserID); err != nil {
			h.logger.Warn("failed to invalidate profile cache",
				"user_id", standing.UserID,
				"error", err,
			)
		}
	}

	if h.leaderboard != nil {
		if err := h.leaderboard.SetStanding(ctx, standing); err != nil {
			h.logger.Warn("failed to update leaderboard cache",
				"user_id", standing.UserID,
				"level", standing.Level,
				"error", err,
			)
			return nil
		}
	}

	h.logger.Debug("standing projected",
		"user_id", standing.UserID,
		"level", standing.Level,
		"points", standing.Points,
	)
	return nil
}

// Subscribe registers the handler on bus.
func (h *OnPointsGrantedHandler) Subscribe(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventPointsGranted, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventUserProvisioned, h.Handle)
}
