package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	cb := New("test",
		WithFailureThreshold(3),
		WithOnStateChange(func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	cb := New("test", WithFailureThreshold(2))
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, ok))
	_ = cb.Execute(ctx, fail)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{
		Requests:            3,
		TotalSuccesses:      1,
		TotalFailures:       2,
		ConsecutiveFailures: 1,
	}, cb.Counts())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	cb := New("test", WithFailureThreshold(1), WithSuccessThreshold(1), WithTimeout(time.Minute))
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(30 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)

	// A failed probe reopens the circuit for another full timeout.
	now = now.Add(31 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	now := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Second))
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	now = now.Add(2 * time.Second)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		assert.ErrorIs(t, cb.Execute(ctx, ok), ErrTooManyRequests)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State(), "one success is below the default success threshold")
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	notFound := errors.New("not found")
	cb := New("test",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, notFound) }),
	)

	assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return notFound }), notFound)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Counts().TotalSuccesses)

	cb.Reset()
	assert.Equal(t, Counts{}, cb.Counts())
}

func TestCacheBreaker(t *testing.T) {
	cb := CacheBreaker(WithFailureThreshold(2))
	assert.Equal(t, "redis", cb.Name())
	assert.Equal(t, 2, cb.config.FailureThreshold)
	assert.Equal(t, 15*time.Second, cb.config.Timeout)
}
