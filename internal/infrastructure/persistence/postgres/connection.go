// Package postgres implements the transactional store on PostgreSQL via pgx.
// Every repository operates on a Querier bound to one transaction; the
// UnitOfWork in this package hands them out and owns commit and rollback.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnectionClosed indicates the connection pool is closed.
	ErrConnectionClosed = errors.New("postgres: connection pool is closed")

	// ErrMigrationFailed indicates a migration failure.
	ErrMigrationFailed = errors.New("postgres: migration failed")

	// ErrTransactionFailed indicates the transaction could not be started.
	ErrTransactionFailed = errors.New("postgres: transaction failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION POOL
// ══════════════════════════════════════════════════════════════════════════════

// Config holds PostgreSQL connection configuration.
type Config struct {
	// URL, when set, takes precedence over the discrete fields below.
	URL string

	Host     string
	Port     int
	Database string
	User     string
	Password string

	// SSLMode is one of disable, require, verify-ca, verify-full.
	SSLMode string

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

// DefaultConfig returns defaults suitable for a local database.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              5432,
		Database:          "lifequest",
		User:              "postgres",
		SSLMode:           "disable",
		MaxConns:          10,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
	}
}

// DSN returns the connection string.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Host,
		c.Port,
		c.Database,
		c.User,
		c.Password,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// PoolConfig returns the pgxpool configuration. Pool sizes already present
// in a URL are kept.
func (c Config) PoolConfig() (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}

	if c.MaxConns > 0 {
		config.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		config.MinConns = c.MinConns
	}
	if c.MaxConnLifetime > 0 {
		config.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = c.HealthCheckPeriod
	}

	return config, nil
}

// Connection wraps a pgx pool.
type Connection struct {
	pool   *pgxpool.Pool
	closed bool
	mu     sync.RWMutex
}

// NewConnection opens a pool and verifies it with a ping.
func NewConnection(ctx context.Context, cfg Config) (*Connection, error) {
	poolConfig, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	return &Connection{pool: pool}, nil
}

// NewConnectionFromURL opens a pool from a database URL using default pool sizes.
func NewConnectionFromURL(ctx context.Context, databaseURL string) (*Connection, error) {
	cfg := DefaultConfig()
	cfg.URL = databaseURL
	return NewConnection(ctx, cfg)
}

// Pool returns the underlying pool.
func (c *Connection) Pool() *pgxpool.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool
}

// Close closes the pool. Safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.pool.Close()
}

// Ping checks that the database answers.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

// HealthStatus contains pool health information.
type HealthStatus struct {
	Healthy       bool
	Error         string
	CheckedAt     time.Time
	PingLatency   time.Duration
	TotalConns    int32
	IdleConns     int32
	AcquiredConns int32
	MaxConns      int32
}

// Health pings the database and reports pool statistics.
func (c *Connection) Health(ctx context.Context) (*HealthStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	status := &HealthStatus{CheckedAt: time.Now().UTC()}

	start := time.Now()
	if err := c.pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.PingLatency = time.Since(start)

	stats := c.pool.Stat()
	status.TotalConns = stats.TotalConns()
	status.IdleConns = stats.IdleConns()
	status.AcquiredConns = stats.AcquiredConns()
	status.MaxConns = stats.MaxConns()
	status.Healthy = true

	return status, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSACTION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// TxOptions holds transaction options.
type TxOptions struct {
	IsoLevel   pgx.TxIsoLevel
	AccessMode pgx.TxAccessMode
}

// DefaultTxOptions returns READ COMMITTED read-write options. Write paths
// rely on SELECT ... FOR UPDATE for isolation, not on the isolation level.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	}
}

// BeginTx starts a new transaction.
func (c *Connection) BeginTx(ctx context.Context, opts TxOptions) (pgx.Tx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   opts.IsoLevel,
		AccessMode: opts.AccessMode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}
	return tx, nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
// A panic in fn rolls back and is re-raised.
func (c *Connection) WithTx(ctx context.Context, opts TxOptions, fn func(pgx.Tx) error) error {
	tx, err := c.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		// Rollback uses a fresh context: ctx may already be the reason fn failed.
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Querier is implemented by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Exec executes a statement outside any transaction.
func (c *Connection) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return pgconn.CommandTag{}, ErrConnectionClosed
	}
	return c.pool.Exec(ctx, sql, args...)
}

// Query executes a query outside any transaction.
func (c *Connection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}
	return c.pool.Query(ctx, sql, args...)
}

// QueryRow executes a single-row query outside any transaction.
func (c *Connection) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool.QueryRow(ctx, sql, args...)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsUniqueViolation reports a unique constraint violation.
func IsUniqueViolation(err error) bool { return hasCode(err, codeUniqueViolation) }

// IsForeignKeyViolation reports a foreign key violation.
func IsForeignKeyViolation(err error) bool { return hasCode(err, codeForeignKeyViolation) }

// IsCheckViolation reports a CHECK constraint violation.
func IsCheckViolation(err error) bool { return hasCode(err, codeCheckViolation) }

// IsSerializationFailure reports a transaction aborted by a serialization conflict.
func IsSerializationFailure(err error) bool { return hasCode(err, codeSerializationFailure) }

// IsDeadlock reports a transaction chosen as a deadlock victim.
func IsDeadlock(err error) bool { return hasCode(err, codeDeadlockDetected) }

// IsTransient reports errors after which re-running the whole transaction may succeed.
func IsTransient(err error) bool {
	return IsSerializationFailure(err) || IsDeadlock(err)
}

// IsNoRows reports pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
