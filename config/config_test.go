package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanEnv blanks the variables a developer shell is likely to carry.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "APP_TIMEZONE", "DATABASE_URL", "DB_HOST", "DB_USER",
		"REDIS_ENABLED", "REDIS_PORT", "SCHEDULER_ENABLED",
		"SCHEDULER_REBUILD_LEADERBOARD_CRON", "PROGRESSION_DEADLINE_PENALTY",
		"HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, int64(10), cfg.Progression.DeadlinePenalty)
	assert.Equal(t, 100, cfg.Progression.PenaltyBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.DeadlinePenaltyInterval)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.RebuildLeaderboardCron)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
	assert.True(t, cfg.Features.IsEnabled(FeatureDeadlinePenalty, nil))
	assert.False(t, cfg.Features.IsEnabled(FeatureEventsAsync, nil))
}

func TestLoad_FromEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("APP_TIMEZONE", "Asia/Almaty")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "lq")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("PROGRESSION_DEADLINE_PENALTY", "25")
	t.Setenv("SCHEDULER_DEADLINE_PENALTY_INTERVAL", "90s")
	t.Setenv("FEATURE_ACHIEVEMENTS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://lq:secret@db:5432/lifequest?sslmode=disable", cfg.Database.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, int64(25), cfg.Progression.DeadlinePenalty)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.DeadlinePenaltyInterval)
	assert.False(t, cfg.Features.IsEnabled(FeatureAchievements, nil))
	if cfg.App.Location != time.UTC {
		assert.Equal(t, "Asia/Almaty", cfg.App.Location.String())
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cleanEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("PROGRESSION_DEADLINE_PENALTY", "-5")
	t.Setenv("SCHEDULER_REBUILD_LEADERBOARD_CRON", "0 3 * *")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required in production")
	assert.Contains(t, err.Error(), "PROGRESSION_DEADLINE_PENALTY must be positive")
	assert.Contains(t, err.Error(), "SCHEDULER_REBUILD_LEADERBOARD_CRON must have 5 fields")
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("LQ_TEST_INT", "many")
	t.Setenv("LQ_TEST_DURATION", "soon")
	t.Setenv("LQ_TEST_BOOL", "perhaps")

	assert.Equal(t, 7, getEnvInt("LQ_TEST_INT", 7))
	assert.Equal(t, int64(7), getEnvInt64("LQ_TEST_INT", 7))
	assert.Equal(t, time.Second, getEnvDuration("LQ_TEST_DURATION", time.Second))
	assert.True(t, getEnvBool("LQ_TEST_BOOL", true))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("LQ_TEST_FROM_FILE=yes\nLQ_TEST_PRESET=inner\n"), 0o600))

	t.Setenv("LQ_TEST_PRESET", "outer")
	t.Cleanup(func() { _ = os.Unsetenv("LQ_TEST_FROM_FILE") })

	require.NoError(t, LoadDotEnv(file, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "yes", os.Getenv("LQ_TEST_FROM_FILE"))
	assert.Equal(t, "outer", os.Getenv("LQ_TEST_PRESET"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "nothing-here.env")))
}
