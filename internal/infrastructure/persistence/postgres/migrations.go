package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one schema version.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return NewMigratorWithMigrations(conn, GetMigrations())
}

// NewMigratorWithMigrations creates a migrator over custom migrations.
func NewMigratorWithMigrations(conn *Connection, migrations []Migration) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: migrations,
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the tracking table if needed.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns applied versions with their timestamps.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
// It returns the number of migrations applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return 0, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if mig.UpSQL == "" {
			return count, fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName),
				mig.Version, mig.Name,
			)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
		count++
	}

	return count, nil
}

// Rollback reverts the most recently applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range applied {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to roll back migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_profiles", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_quests_and_tasks", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_habits", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_achievements", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: PROFILES
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS profiles (
    user_id    TEXT PRIMARY KEY,
    level      INTEGER NOT NULL DEFAULT 1,
    points     BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_points CHECK (points >= 0)
);

-- Leaderboard order
CREATE INDEX IF NOT EXISTS idx_profiles_standing ON profiles(level DESC, points DESC, user_id);
`

const migration001Down = `
DROP TABLE IF EXISTS profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: QUESTS AND TASKS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS quests (
    id            TEXT PRIMARY KEY,
    owner_id      TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    type          VARCHAR(20) NOT NULL,
    title         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    reward_points BIGINT NOT NULL DEFAULT 0,
    reward_other  TEXT NOT NULL DEFAULT '',
    penalty_info  TEXT NOT NULL DEFAULT '',
    status        VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at  TIMESTAMPTZ,
    failed_at     TIMESTAMPTZ,

    CONSTRAINT valid_quest_status CHECK (status IN ('ACTIVE', 'COMPLETED', 'FAILED')),
    CONSTRAINT valid_quest_type CHECK (type IN ('DAILY', 'URGENT', 'CHALLENGE', 'MAIN')),
    CONSTRAINT valid_reward CHECK (reward_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_quests_owner ON quests(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_quests_owner_status ON quests(owner_id, status);

CREATE TABLE IF NOT EXISTS tasks (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    points       BIGINT NOT NULL DEFAULT 0,
    completed    BOOLEAN NOT NULL DEFAULT FALSE,
    category     TEXT NOT NULL DEFAULT '',
    unit_type    TEXT NOT NULL DEFAULT '',
    unit_amount  BIGINT NOT NULL DEFAULT 0,
    deadline     TIMESTAMPTZ,
    penalized_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_task_points CHECK (points >= 0),
    CONSTRAINT valid_unit_amount CHECK (unit_amount >= 0)
);

CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id, created_at DESC);

-- Deadline sweep: only rows that can still be penalized
CREATE INDEX IF NOT EXISTS idx_tasks_overdue ON tasks(deadline)
    WHERE completed = FALSE AND penalized_at IS NULL AND deadline IS NOT NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS tasks;
DROP TABLE IF EXISTS quests;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: HABITS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS habits (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    streak       INTEGER NOT NULL DEFAULT 0,
    last_tracked DATE,
    is_active    BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_streak CHECK (streak >= 0)
);

CREATE INDEX IF NOT EXISTS idx_habits_owner_active ON habits(owner_id) WHERE is_active;
`

const migration003Down = `
DROP TABLE IF EXISTS habits;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Shared templates; requirements holds the five tier thresholds BRONZE..DIAMOND
CREATE TABLE IF NOT EXISTS achievements (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL,
    unit_type    TEXT NOT NULL,
    requirements BIGINT[] NOT NULL,

    CONSTRAINT valid_requirements CHECK (array_length(requirements, 1) = 5)
);

CREATE INDEX IF NOT EXISTS idx_achievements_measure ON achievements(lower(btrim(category)), lower(btrim(unit_type)));

CREATE TABLE IF NOT EXISTS user_achievements (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
    achievement_id   TEXT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    current_progress BIGINT NOT NULL DEFAULT 0,
    current_tier     VARCHAR(10) NOT NULL DEFAULT 'BRONZE',
    completed        BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at     TIMESTAMPTZ,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_user_achievement UNIQUE (user_id, achievement_id),
    CONSTRAINT valid_progress CHECK (current_progress >= 0),
    CONSTRAINT valid_tier CHECK (current_tier IN ('BRONZE', 'SILVER', 'GOLD', 'PLATINUM', 'DIAMOND'))
);

CREATE INDEX IF NOT EXISTS idx_user_achievements_open ON user_achievements(user_id) WHERE NOT completed;
`

const migration004Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS achievements;
`
