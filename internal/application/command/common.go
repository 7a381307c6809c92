// Package command contains write operations (CQRS - Commands).
//
// Every handler runs its state transition and any reward grant in one unit of
// work and publishes domain events only after the transaction has committed.
package command

import (
	"context"
	"log/slog"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// publishAll sends committed events. Publish failures never fail the operation.
func publishAll(ctx context.Context, publisher shared.EventPublisher, logger *slog.Logger, events []shared.Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(event); err != nil {
			logger.WarnContext(ctx, "failed to publish event",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
		}
	}
}

// logFailure logs a failed operation at a severity matching its error class:
// routine rejections at Info, integrity violations and store failures at Error.
func logFailure(ctx context.Context, logger *slog.Logger, op string, err error, attrs ...any) {
	attrs = append(attrs, "op", op, "error", err)
	if shared.IsExpected(err) {
		logger.InfoContext(ctx, "operation rejected", attrs...)
		return
	}
	logger.ErrorContext(ctx, "operation failed", attrs...)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func clockOrDefault(clock shared.Clock) shared.Clock {
	if clock == nil {
		return shared.SystemClock{}
	}
	return clock
}
