// Package redis implements the Redis-backed projections of progression data.
//
// Key components:
//   - Cache: connection handling, JSON values and short-lived locks
//   - LeaderboardCache: ranked standings kept in a sorted set
//   - ProfileCache: read-through profile cache
//
// Everything stored here is derived from Postgres and can be rebuilt.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lifequest/lifequest-core/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string

	// DB is the Redis database number (0-15).
	DB int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the requested key is not found in cache.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis connection fails.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when serialization/deserialization fails.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheInvalidTTL is returned when an invalid TTL is provided.
	ErrCacheInvalidTTL = errors.New("cache: invalid TTL")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")

	// ErrLockNotAcquired is returned when another holder owns the lock.
	ErrLockNotAcquired = errors.New("cache: lock is held elsewhere")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS AND TTLs
// ══════════════════════════════════════════════════════════════════════════════

const (
	PrefixProfile     = "profile:"
	PrefixLeaderboard = "leaderboard:"
	PrefixLock        = "lock:"
)

const (
	// TTLProfileCache is the default TTL for cached profiles.
	TTLProfileCache = 5 * time.Minute

	// TTLDistributedLock is the default lock TTL.
	TTLDistributedLock = 30 * time.Second
)

// ProfileKey generates a cache key for a user's profile.
func ProfileKey(userID string) string {
	return PrefixProfile + userID
}

// LockKey generates a cache key for distributed locks.
func LockKey(resource string) string {
	return PrefixLock + resource
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache wraps a Redis client with JSON helpers. Every command goes through a
// circuit breaker, so an unreachable Redis fails fast with
// circuitbreaker.ErrCircuitOpen instead of waiting for timeouts.
type Cache struct {
	client  redis.UniversalClient
	breaker *circuitbreaker.CircuitBreaker
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg Config, opts ...circuitbreaker.Option) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return NewCacheFromClient(client, opts...), nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client redis.UniversalClient, opts ...circuitbreaker.Option) *Cache {
	opts = append([]circuitbreaker.Option{circuitbreaker.WithIsFailure(isConnectionFailure)}, opts...)
	return &Cache{
		client:  client,
		breaker: circuitbreaker.CacheBreaker(opts...),
	}
}

// isConnectionFailure reports whether err says something about Redis health.
// Misses, lock contention and bad payloads do not.
func isConnectionFailure(err error) bool {
	switch {
	case errors.Is(err, redis.Nil),
		errors.Is(err, ErrCacheMiss),
		errors.Is(err, ErrLockNotAcquired),
		errors.Is(err, ErrCacheSerialization),
		errors.Is(err, ErrCacheKeyEmpty),
		errors.Is(err, ErrCacheInvalidTTL),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// do runs one round trip under the breaker.
func (c *Cache) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.breaker.Execute(ctx, fn)
}

// Breaker exposes the circuit breaker state for health reporting.
func (c *Cache) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Client returns the underlying Redis client.
func (c *Cache) Client() redis.UniversalClient {
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON under key.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	if ttl < 0 {
		return ErrCacheInvalidTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return c.do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, ttl).Err()
	})
}

// Get decodes the JSON value stored under key into dest.
// Returns ErrCacheMiss if the key doesn't exist.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	var data []byte
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Delete removes keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.do(ctx, func(ctx context.Context) error {
		return c.client.Del(ctx, keys...).Err()
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DISTRIBUTED LOCK
// ══════════════════════════════════════════════════════════════════════════════

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held distributed lock.
type Lock struct {
	cache *Cache
	key   string
	token string
}

// AcquireLock takes the named lock for ttl. It returns ErrLockNotAcquired
// when another process holds it.
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (*Lock, error) {
	if resource == "" {
		return nil, ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		ttl = TTLDistributedLock
	}

	key := LockKey(resource)
	token := uuid.NewString()

	var ok bool
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		ok, err = c.client.SetNX(ctx, key, token, ttl).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", resource, err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &Lock{cache: c, key: key, token: token}, nil
}

// Release frees the lock if it has not expired and been taken by someone else.
func (l *Lock) Release(ctx context.Context) error {
	return l.cache.do(ctx, func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.cache.client, []string{l.key}, l.token).Err()
	})
}

// TryLock is AcquireLock for callers that only need the release function.
// ok is false, with a nil error, when another process holds the lock.
func (c *Cache) TryLock(ctx context.Context, resource string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	lock, err := c.AcquireLock(ctx, resource, ttl)
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return lock.Release, true, nil
}
