package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
)

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"

	assert.Equal(t,
		"host=localhost port=5432 dbname=lifequest user=postgres password=secret sslmode=disable connect_timeout=10",
		cfg.DSN(),
	)

	cfg.URL = "postgres://u:p@db:5432/app?sslmode=require"
	assert.Equal(t, cfg.URL, cfg.DSN())
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConns = 25

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.EqualValues(t, 25, pc.MaxConns)
	assert.EqualValues(t, 2, pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
}

func TestErrorHelpers(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("postgres: commit: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsUniqueViolation(wrap("23505")))
	assert.True(t, IsForeignKeyViolation(wrap("23503")))
	assert.True(t, IsCheckViolation(wrap("23514")))

	assert.True(t, IsTransient(wrap("40001")))
	assert.True(t, IsTransient(wrap("40P01")))
	assert.False(t, IsTransient(wrap("23505")))
	assert.False(t, IsTransient(errors.New("boom")))

	assert.True(t, IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(nil))
}

func TestGetMigrations_Ordered(t *testing.T) {
	migrations := GetMigrations()
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
}

func TestDateArg(t *testing.T) {
	assert.Nil(t, dateArg(nil))
	assert.Nil(t, dateArg(&shared.Date{}))

	d := shared.NewDate(2024, time.March, 9)
	got := dateArg(&d)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), *got)
}

func TestSetRequirements(t *testing.T) {
	a := &achievement.Achievement{ID: "bookworm"}
	require.NoError(t, setRequirements(a, []int64{100, 500, 1000, 5000, 10000}))
	assert.Equal(t, achievement.Requirements{100, 500, 1000, 5000, 10000}, a.Requirements)

	err := setRequirements(a, []int64{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrIntegrity)
}
