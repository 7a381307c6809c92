// Package circuitbreaker implements the Circuit Breaker pattern.
// It keeps a failing optional dependency (the Redis projections) from slowing
// down every caller: after repeated failures calls fail fast until a probe succeeds.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the position of the breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down has passed.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned without calling fn while the circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when every half-open probe slot is taken.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int

	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// MaxHalfOpenRequests caps concurrent probes.
	MaxHalfOpenRequests int

	// OnStateChange is called, under the breaker lock, on every transition.
	OnStateChange func(name string, from, to State)

	// IsFailure decides whether an error counts against the circuit.
	// When nil, every non-nil error does.
	IsFailure func(error) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// Option is a functional option for configuring the circuit breaker.
type Option func(*Config)

// WithFailureThreshold sets the failure threshold.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the success threshold.
func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

// WithTimeout sets the open-state cool-down.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithMaxHalfOpenRequests sets the number of concurrent probes.
func WithMaxHalfOpenRequests(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxHalfOpenRequests = n
		}
	}
}

// WithOnStateChange sets the state change callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) {
		c.OnStateChange = fn
	}
}

// WithIsFailure sets the failure classifier.
func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) {
		c.IsFailure = fn
	}
}

// Counts are the breaker's running totals.
type Counts struct {
	Requests             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker guards calls to one dependency.
type CircuitBreaker struct {
	config Config

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	inFlight int
	nowFunc  func() time.Time
}

// New creates a new CircuitBreaker with the given name and options.
func New(name string, opts ...Option) *CircuitBreaker {
	config := DefaultConfig(name)
	for _, opt := range opts {
		opt(&config)
	}
	return &CircuitBreaker{
		config:  config,
		state:   StateClosed,
		nowFunc: time.Now,
	}
}

// Execute runs fn unless the circuit rejects the call, and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.nowFunc().Sub(cb.openedAt) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.inFlight = 1
		return nil
	case StateHalfOpen:
		if cb.inFlight >= cb.config.MaxHalfOpenRequests {
			return ErrTooManyRequests
		}
		cb.inFlight++
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++

	failed := err != nil
	if failed && cb.config.IsFailure != nil {
		failed = cb.config.IsFailure(err)
	}

	if !failed {
		cb.counts.TotalSuccesses++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen {
			cb.inFlight--
			if cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
				cb.setState(StateClosed)
			}
		}
		return
	}

	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	switch cb.state {
	case StateClosed:
		if cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.nowFunc()
	cb.setState(StateOpen)
}

// setState resets the consecutive counters on every transition.
func (cb *CircuitBreaker) setState(next State) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0
	cb.inFlight = 0

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, prev, next)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns the current counts.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the circuit and clears the counts.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.counts = Counts{}
	cb.inFlight = 0
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// CacheBreaker returns a breaker tuned for the Redis projections: they are
// optional, so the circuit opens quickly and probes again soon.
func CacheBreaker(opts ...Option) *CircuitBreaker {
	base := []Option{
		WithFailureThreshold(5),
		WithSuccessThreshold(1),
		WithTimeout(15 * time.Second),
		WithMaxHalfOpenRequests(1),
	}
	return New("redis", append(base, opts...)...)
}
