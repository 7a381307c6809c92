// Package retry re-runs operations that failed for transient reasons, with
// exponential backoff and jitter. The main user is the Postgres unit of work,
// which retries transactions aborted by deadlocks or serialization failures.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryableError marks an error as transient.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err so the default policy retries it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was wrapped with Retryable.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

// PermanentError stops retrying regardless of the policy.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so it is returned immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// Config holds retry configuration.
type Config struct {
	// MaxAttempts counts the first attempt too.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// JitterFactor spreads each delay by up to ±JitterFactor of its value.
	JitterFactor float64

	// RetryIf decides which errors are retried. When nil, only RetryableError is.
	RetryIf func(error) bool

	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// Option is a functional option for configuring retries.
type Option func(*Config)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.InitialDelay = d
		}
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		if m >= 1.0 {
			c.Multiplier = m
		}
	}
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1.0 {
			c.JitterFactor = j
		}
	}
}

// WithRetryIf sets the retry policy.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.RetryIf = fn
	}
}

// WithOnRetry sets a callback invoked before each retry.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// Retrier manages retry operations.
type Retrier struct {
	config Config
}

// New creates a new Retrier with the given options.
func New(opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

// With returns a copy of r with opts applied.
func (r *Retrier) With(opts ...Option) *Retrier {
	config := r.config
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

// Do runs operation until it succeeds, fails permanently, exhausts the
// attempts or ctx ends. Retryable and Permanent wrappers are removed from
// the returned error.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return unwrapMarkers(lastErr)
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) || !r.shouldRetry(err) || attempt == r.config.MaxAttempts {
			return unwrapMarkers(err)
		}

		delay := r.calculateDelay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unwrapMarkers(lastErr)
		case <-timer.C:
		}
	}

	return unwrapMarkers(lastErr)
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return IsRetryable(err)
}

// unwrapMarkers strips a top-level Retryable or Permanent wrapper.
func unwrapMarkers(err error) error {
	var re *RetryableError
	if errors.As(err, &re) && err == error(re) {
		return re.Err
	}
	var pe *PermanentError
	if errors.As(err, &pe) && err == error(pe) {
		return pe.Err
	}
	return err
}

// calculateDelay returns InitialDelay * Multiplier^(attempt-1), capped and jittered.
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	if r.config.JitterFactor > 0 {
		delay += delay * r.config.JitterFactor * (rand.Float64()*2 - 1)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Do is a convenience function that creates a Retrier and executes the operation.
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, operation)
}

// DoWithData is a helper for operations that return data.
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var result T
	err := New(opts...).Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = operation(ctx)
		return opErr
	})
	return result, err
}

// DatabaseRetrier returns a Retrier tuned for short transactions that lost a
// lock race. Callers supply the policy with WithRetryIf.
func DatabaseRetrier(opts ...Option) *Retrier {
	return New(
		WithMaxAttempts(4),
		WithInitialDelay(20*time.Millisecond),
		WithMaxDelay(500*time.Millisecond),
		WithMultiplier(2.0),
		WithJitter(0.2),
	).With(opts...)
}
