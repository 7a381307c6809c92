package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
)

// ErrUserIDEmpty is returned when a standing has no user.
var ErrUserIDEmpty = errors.New("leaderboard_cache: user id is empty")

// LeaderboardCache ranks profiles with a Redis sorted set.
//
// Layout:
//   - Sorted set "leaderboard:levels" maps userID -> level + level progress
//   - Hash "leaderboard:info" maps userID -> standing JSON
//
// Rank lookups are O(log N) and top-N reads are O(log N + M).
type LeaderboardCache struct {
	cache *Cache
}

const (
	keyLeaderboardScores = PrefixLeaderboard + "levels"
	keyLeaderboardInfo   = PrefixLeaderboard + "info"
)

// standingJSON is the hash value layout.
type standingJSON struct {
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
	Points int64  `json:"points"`
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// SetStanding inserts or replaces one user's standing.
func (l *LeaderboardCache) SetStanding(ctx context.Context, s progression.Standing) error {
	if s.UserID == "" {
		return ErrUserIDEmpty
	}

	data, err := json.Marshal(standingJSON{UserID: s.UserID, Level: s.Level, Points: s.Points})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	return l.cache.do(ctx, func(ctx context.Context) error {
		pipe := l.cache.Client().TxPipeline()
		pipe.ZAdd(ctx, keyLeaderboardScores, redis.Z{Score: s.Score(), Member: s.UserID})
		pipe.HSet(ctx, keyLeaderboardInfo, s.UserID, data)
		_, err := pipe.Exec(ctx)
		return err
	})
}

// Top returns up to limit standings, highest first.
func (l *LeaderboardCache) Top(ctx context.Context, limit int) ([]progression.Standing, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		ids    []string
		values []interface{}
	)
	err := l.cache.do(ctx, func(ctx context.Context) error {
		client := l.cache.Client()
		var err error
		ids, err = client.ZRevRange(ctx, keyLeaderboardScores, 0, int64(limit-1)).Result()
		if err != nil || len(ids) == 0 {
			return err
		}
		values, err = client.HMGet(ctx, keyLeaderboardInfo, ids...).Result()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	standings := make([]progression.Standing, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Score without details: the hash entry was lost, skip the row.
			continue
		}
		var sj standingJSON
		if err := json.Unmarshal([]byte(raw), &sj); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCacheSerialization, ids[i], err)
		}
		standings = append(standings, progression.Standing{UserID: sj.UserID, Level: sj.Level, Points: sj.Points})
	}
	return standings, nil
}

// Rank returns the user's 1-based position, or progression.ErrCacheMiss.
func (l *LeaderboardCache) Rank(ctx context.Context, userID string) (int, error) {
	var rank int64
	err := l.cache.do(ctx, func(ctx context.Context) error {
		var err error
		rank, err = l.cache.Client().ZRevRank(ctx, keyLeaderboardScores, userID).Result()
		return err
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, progression.ErrCacheMiss
		}
		return 0, err
	}
	return int(rank) + 1, nil
}

// Rebuild replaces the whole leaderboard atomically.
func (l *LeaderboardCache) Rebuild(ctx context.Context, standings []progression.Standing) error {
	pipe := l.cache.Client().TxPipeline()
	pipe.Del(ctx, keyLeaderboardScores, keyLeaderboardInfo)

	if len(standings) > 0 {
		members := make([]redis.Z, 0, len(standings))
		fields := make([]interface{}, 0, 2*len(standings))
		for _, s := range standings {
			if s.UserID == "" {
				continue
			}
			data, err := json.Marshal(standingJSON{UserID: s.UserID, Level: s.Level, Points: s.Points})
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
			}
			members = append(members, redis.Z{Score: s.Score(), Member: s.UserID})
			fields = append(fields, s.UserID, data)
		}
		if len(members) > 0 {
			pipe.ZAdd(ctx, keyLeaderboardScores, members...)
			pipe.HSet(ctx, keyLeaderboardInfo, fields...)
		}
	}

	return l.cache.do(ctx, func(ctx context.Context) error {
		_, err := pipe.Exec(ctx)
		return err
	})
}
