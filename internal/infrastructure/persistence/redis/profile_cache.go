package redis

import (
	"context"
	"errors"
	"time"

	"github.com/lifequest/lifequest-core/internal/domain/progression"
)

// ProfileCache implements progression.ProfileCache on top of Cache.
type ProfileCache struct {
	cache *Cache
}

// NewProfileCache creates a new ProfileCache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

type profileJSON struct {
	UserID    string    `json:"user_id"`
	Level     int       `json:"level"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get returns the cached profile or progression.ErrCacheMiss.
func (p *ProfileCache) Get(ctx context.Context, userID string) (*progression.Profile, error) {
	var pj profileJSON
	if err := p.cache.Get(ctx, ProfileKey(userID), &pj); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, progression.ErrCacheMiss
		}
		return nil, err
	}

	profile := &progression.Profile{
		UserID:    pj.UserID,
		Level:     pj.Level,
		Points:    pj.Points,
		CreatedAt: pj.CreatedAt,
		UpdatedAt: pj.UpdatedAt,
	}
	// Corrupt entries read as a miss.
	if profile.Validate() != nil {
		_ = p.cache.Delete(ctx, ProfileKey(userID))
		return nil, progression.ErrCacheMiss
	}
	return profile, nil
}

// Set stores the profile for ttl.
func (p *ProfileCache) Set(ctx context.Context, profile *progression.Profile, ttl time.Duration) error {
	if profile == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLProfileCache
	}
	return p.cache.Set(ctx, ProfileKey(profile.UserID), profileJSON{
		UserID:    profile.UserID,
		Level:     profile.Level,
		Points:    profile.Points,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}, ttl)
}

// Invalidate drops the cached profile.
func (p *ProfileCache) Invalidate(ctx context.Context, userID string) error {
	return p.cache.Delete(ctx, ProfileKey(userID))
}
