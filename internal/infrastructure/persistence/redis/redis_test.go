package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/pkg/circuitbreaker"
)

// unreachableCache talks to a port nothing listens on.
func unreachableCache(t *testing.T, opts ...circuitbreaker.Option) *Cache {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client, opts...)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "profile:alice", ProfileKey("alice"))
	assert.Equal(t, "lock:deadline_penalty", LockKey("deadline_penalty"))
	assert.Equal(t, "localhost:6379", DefaultConfig().Addr())
}

func TestIsConnectionFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{redis.Nil, false},
		{ErrCacheMiss, false},
		{fmt.Errorf("wrapped: %w", ErrLockNotAcquired), false},
		{ErrCacheSerialization, false},
		{context.Canceled, false},
		{errors.New("dial tcp: connection refused"), true},
		{context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isConnectionFailure(tt.err), tt.err.Error())
	}
}

func TestCache_ValidatesBeforeRoundTrip(t *testing.T) {
	c := unreachableCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, c.Set(ctx, "k", make(chan int), time.Minute), ErrCacheSerialization)
	assert.ErrorIs(t, c.Get(ctx, "", new(int)), ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(ctx))

	_, _, err := c.TryLock(ctx, "", time.Second)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)

	lb := NewLeaderboardCache(c)
	assert.ErrorIs(t, lb.SetStanding(ctx, progression.Standing{}), ErrUserIDEmpty)
	standings, err := lb.Top(ctx, 0)
	assert.NoError(t, err)
	assert.Empty(t, standings)

	assert.Equal(t, 0, c.Breaker().Counts().Requests)
}

func TestCache_BreakerOpensWhenRedisIsDown(t *testing.T) {
	c := unreachableCache(t, circuitbreaker.WithFailureThreshold(2))
	ctx := context.Background()
	profiles := NewProfileCache(c)

	for i := 0; i < 2; i++ {
		err := profiles.Set(ctx, &progression.Profile{UserID: "alice", Level: 1}, time.Minute)
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	}
	assert.Equal(t, circuitbreaker.StateOpen, c.Breaker().State())

	_, err := profiles.Get(ctx, "alice")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)

	_, err = NewLeaderboardCache(c).Rank(ctx, "alice")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)

	_, ok, err := c.TryLock(ctx, "rebuild_leaderboard", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}
