// Package messaging implements the event bus that fans out domain events
// after their transaction has committed.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus is a simple in-memory implementation of shared.EventBus.
// Handler errors and panics are logged and never reach the publisher.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	asyncMode   bool
	workerPool  chan struct{}
	logger      *slog.Logger
	metrics     *EventBusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on a bounded worker pool instead of the publisher's goroutine.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent workers for async processing
	WorkerPoolSize int

	Logger *slog.Logger

	EnableMetrics bool
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		EnableMetrics:  true,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	bus := &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger,
		closeCh:    make(chan struct{}),
	}
	if config.EnableMetrics {
		bus.metrics = NewEventBusMetrics()
	}
	return bus
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	b.logger.Debug("subscribed global handler")
	return nil
}

// Publish sends an event to all subscribed handlers.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.RecordPublish(event.EventType())
	}

	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	for _, handler := range handlers {
		if b.asyncMode {
			b.executeAsync(event, handler)
			continue
		}
		if err := b.execute(event, handler); err != nil {
			b.logger.Error("handler error", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

// executeAsync executes a handler asynchronously using the worker pool.
func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		select {
		case b.workerPool <- struct{}{}:
			defer func() { <-b.workerPool }()
		case <-b.closeCh:
			return
		}

		if err := b.execute(event, handler); err != nil {
			b.logger.Error("async handler error",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
		}
	}()
}

// execute runs one handler, converting a panic into ErrHandlerPanic.
func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered",
				"event_type", event.EventType(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		if b.metrics != nil {
			b.metrics.RecordHandlerExecution(event.EventType(), time.Since(start), err == nil)
		}
	}()
	return handler(event)
}

// Close stops accepting events and waits for running handlers.
// Async handlers still waiting for a worker slot are dropped.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// Wait blocks until every handler started so far has returned.
func (b *InMemoryEventBus) Wait() {
	b.wg.Wait()
}

// Metrics returns the current metrics, nil when disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS FORWARDER
// Mirrors committed events onto a Redis Pub/Sub channel so processes outside
// this one (notification senders, dashboards) can react to them.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultEventChannel is the Redis channel events are forwarded to.
const DefaultEventChannel = "lifequest:events"

// RedisPublisher is the subset of *redis.Client used by the forwarder.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisForwarder publishes event envelopes to Redis.
type RedisForwarder struct {
	client     RedisPublisher
	channel    string
	instanceID string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRedisForwarder creates a forwarder. An empty channel selects DefaultEventChannel.
func NewRedisForwarder(client RedisPublisher, channel string, logger *slog.Logger) *RedisForwarder {
	if channel == "" {
		channel = DefaultEventChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisForwarder{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		timeout:    2 * time.Second,
		logger:     logger,
	}
}

// Handle implements shared.EventHandler. Register it with SubscribeAll.
func (f *RedisForwarder) Handle(event shared.Event) error {
	data, err := json.Marshal(Envelope{
		InstanceID:  f.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	if err := f.client.Publish(ctx, f.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", f.channel, err)
	}
	return nil
}

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics tracks event bus performance metrics.
type EventBusMetrics struct {
	mu sync.RWMutex

	PublishedTotal map[shared.EventType]int64

	HandlerExecutions    int64
	HandlerSuccesses     int64
	HandlerFailures      int64
	HandlerTotalDuration time.Duration
	HandlersByType       map[shared.EventType]int64

	LastReset time.Time
}

// NewEventBusMetrics creates new metrics tracker.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{
		PublishedTotal: make(map[shared.EventType]int64),
		HandlersByType: make(map[shared.EventType]int64),
		LastReset:      time.Now(),
	}
}

// RecordPublish records a publish event.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishedTotal[eventType]++
}

// RecordHandlerExecution records a handler execution.
func (m *EventBusMetrics) RecordHandlerExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.HandlerExecutions++
	m.HandlerTotalDuration += duration
	m.HandlersByType[eventType]++

	if success {
		m.HandlerSuccesses++
	} else {
		m.HandlerFailures++
	}
}

// Snapshot returns a copy of current metrics.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	avgDuration := time.Duration(0)
	if m.HandlerExecutions > 0 {
		avgDuration = m.HandlerTotalDuration / time.Duration(m.HandlerExecutions)
	}

	var published int64
	for _, v := range m.PublishedTotal {
		published += v
	}

	rate := 1.0
	if m.HandlerExecutions > 0 {
		rate = float64(m.HandlerSuccesses) / float64(m.HandlerExecutions)
	}

	return EventBusMetricsSnapshot{
		TotalPublished:         published,
		TotalHandlerExecs:      m.HandlerExecutions,
		HandlerFailures:        m.HandlerFailures,
		HandlerSuccessRate:     rate,
		AverageHandlerDuration: avgDuration,
		LastReset:              m.LastReset,
	}
}

// EventBusMetricsSnapshot is a point-in-time snapshot of metrics.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	TotalHandlerExecs      int64
	HandlerFailures        int64
	HandlerSuccessRate     float64
	AverageHandlerDuration time.Duration
	LastReset              time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)
