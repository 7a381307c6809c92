package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles with gradual, per-user rollout.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// userID -> feature -> enabled
	userOverrides map[string]map[string]bool

	now func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent (0-100). Users are bucketed by a hash of their ID.
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Feature flag names. The env key is FEATURE_ followed by the upper-cased
// name, e.g. FEATURE_DEADLINE_PENALTY.
const (
	// Tier accrual on task completion and catalog seeding.
	FeatureAchievements = "achievements"

	// Redis profile cache and leaderboard projections.
	FeatureLeaderboardCache = "leaderboard_cache"

	// The scheduled overdue-task sweep.
	FeatureDeadlinePenalty = "deadline_penalty"

	// Deliver domain events on the bus's worker goroutines instead of inline.
	FeatureEventsAsync = "events_async"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns the flags with their defaults.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
		now:           time.Now,
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureAchievements] = &Feature{
		Name:           FeatureAchievements,
		Description:    "Accrue achievement tiers when tasks complete",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:           FeatureLeaderboardCache,
		Description:    "Project profiles and standings into Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDeadlinePenalty] = &Feature{
		Name:           FeatureDeadlinePenalty,
		Description:    "Charge a penalty once per overdue task",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureEventsAsync] = &Feature{
		Name:           FeatureEventsAsync,
		Description:    "Deliver domain events asynchronously",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment applies FEATURE_<NAME>=true|false|<percent>.
// Example: FEATURE_ACHIEVEMENTS=false
// Example: FEATURE_LEADERBOARD_CACHE=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			feature.RolloutPercent = 0
			if b {
				feature.RolloutPercent = 100
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts a feature name to its environment key.
// "leaderboard_cache" -> "FEATURE_LEADERBOARD_CACHE"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context. A nil
// context asks about the process as a whole: partial rollouts count as on.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.UserID != "" {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout buckets a user consistently for a feature.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(featureName))
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride sets a feature override for a specific user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// SetWindow limits a feature to [from, until]. Nil bounds are open.
func (ff *FeatureFlags) SetWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.EnabledFrom = from
	feature.EnabledUntil = until
	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
