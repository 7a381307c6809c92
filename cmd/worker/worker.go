package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lifequest/lifequest-core/config"
	"github.com/lifequest/lifequest-core/internal/application/command"
	"github.com/lifequest/lifequest-core/internal/application/eventhandler"
	"github.com/lifequest/lifequest-core/internal/application/uow"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/internal/domain/progression"
	"github.com/lifequest/lifequest-core/internal/domain/shared"
	"github.com/lifequest/lifequest-core/internal/infrastructure/messaging"
	"github.com/lifequest/lifequest-core/internal/infrastructure/persistence/memory"
	"github.com/lifequest/lifequest-core/internal/infrastructure/persistence/postgres"
	"github.com/lifequest/lifequest-core/internal/infrastructure/persistence/redis"
	"github.com/lifequest/lifequest-core/internal/infrastructure/scheduler"
	"github.com/lifequest/lifequest-core/internal/infrastructure/scheduler/jobs"
	apihttp "github.com/lifequest/lifequest-core/internal/interface/http"
	"github.com/lifequest/lifequest-core/internal/interface/http/handlers"
	"github.com/lifequest/lifequest-core/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVE
// ══════════════════════════════════════════════════════════════════════════════

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("starting LifeQuest worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Location.String(),
	)

	rt, err := newRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if cfg.Features.IsEnabled(config.FeatureAchievements, nil) {
		if err := command.NewSeedCatalogHandler(rt.store, log).Handle(ctx, achievement.DefaultCatalog()); err != nil {
			return fmt.Errorf("failed to seed achievement catalog: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = rt.scheduler()
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP (health probes and job console)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		server   *apihttp.Server
		serverCh <-chan error
	)
	if cfg.HTTP.Enabled {
		deps := apihttp.Dependencies{
			Logger:        log,
			HealthChecker: rt.healthChecker(),
			Version:       cfg.App.Version,
		}
		if sched != nil {
			deps.Jobs = sched
		}

		server = apihttp.NewServer(apihttp.Config{
			Host:           cfg.HTTP.Host,
			Port:           cfg.HTTP.Port,
			ReadTimeout:    cfg.HTTP.ReadTimeout,
			WriteTimeout:   cfg.HTTP.WriteTimeout,
			IdleTimeout:    cfg.HTTP.IdleTimeout,
			MaxHeaderBytes: 1 << 20,
		}, deps)
		serverCh = server.StartAsync()
	}

	log.Info("worker started")

	// ─────────────────────────────────────────────────────────────────────────
	// GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	waitErr := waitForShutdown(ctx, serverCh, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "error", err)
		}
	}
	if sched != nil {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("scheduler stop failed", "error", err)
		}
	}

	log.Info("worker stopped")
	return waitErr
}

// waitForShutdown blocks until a signal arrives, ctx ends, or the HTTP
// server stops. serverCh is nil when HTTP is disabled and never fires.
func waitForShutdown(ctx context.Context, serverCh <-chan error, log *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
		return nil
	case <-ctx.Done():
		log.Info("context cancelled")
		return nil
	case err, ok := <-serverCh:
		if ok && err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RUNTIME
// ══════════════════════════════════════════════════════════════════════════════

// runtime holds the connected backends shared by serve and run-job.
type runtime struct {
	cfg *config.Config
	log *slog.Logger

	store  uow.UnitOfWork
	dbConn *postgres.Connection

	// cache is nil when Redis is disabled or unreachable.
	cache       *redis.Cache
	locker      jobs.Locker
	leaderboard *redis.LeaderboardCache

	bus *messaging.InMemoryEventBus
}

func newRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, log: log}

	store, conn, err := setupStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	rt.store, rt.dbConn = store, conn

	if cfg.Redis.Enabled {
		cache, err := setupRedis(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", "error", err)
		} else {
			rt.cache = cache
			rt.locker = cache
			rt.leaderboard = redis.NewLeaderboardCache(cache)
		}
	}

	rt.bus = messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.Features.IsEnabled(config.FeatureEventsAsync, nil),
		WorkerPoolSize: 10,
		Logger:         log,
		EnableMetrics:  true,
	})
	if err := rt.subscribeHandlers(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to subscribe event handlers: %w", err)
	}

	return rt, nil
}

// Close drains the bus, then releases Redis and Postgres.
func (rt *runtime) Close() {
	if rt.bus != nil {
		rt.log.Info("draining event bus...")
		_ = rt.bus.Close()
	}
	if rt.cache != nil {
		rt.log.Info("closing redis connection...")
		_ = rt.cache.Close()
	}
	if rt.dbConn != nil {
		rt.log.Info("closing database connection...")
		rt.dbConn.Close()
	}
}

// subscribeHandlers wires milestone logging and, with Redis, the cache
// projections and the event forwarder.
func (rt *runtime) subscribeHandlers() error {
	if err := eventhandler.NewOnMilestoneHandler(nil, rt.log).Subscribe(rt.bus); err != nil {
		return err
	}

	if rt.cache == nil {
		return nil
	}

	if rt.cfg.Features.IsEnabled(config.FeatureLeaderboardCache, nil) {
		var (
			lb       progression.LeaderboardCache = rt.leaderboard
			profiles progression.ProfileCache     = redis.NewProfileCache(rt.cache)
		)
		if err := eventhandler.NewOnPointsGrantedHandler(lb, profiles, rt.log).Subscribe(rt.bus); err != nil {
			return err
		}
	}

	return rt.bus.SubscribeAll(messaging.NewRedisForwarder(rt.cache.Client(), "", rt.log).Handle)
}

// scheduler registers the jobs enabled by configuration.
func (rt *runtime) scheduler() (*scheduler.Scheduler, error) {
	cfg := rt.cfg
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:       rt.log,
		Timezone:     cfg.App.Location,
		TickInterval: cfg.Scheduler.TickInterval,
	})

	if cfg.Features.IsEnabled(config.FeatureDeadlinePenalty, nil) {
		var publisher shared.EventPublisher = rt.bus
		sweeper := command.NewApplyDeadlinePenaltiesHandler(
			rt.store,
			command.NewRewardLedger(rt.log),
			publisher,
			shared.SystemClock{},
			rt.log,
			command.DeadlinePenaltyConfig{
				Penalty:   cfg.Progression.DeadlinePenalty,
				BatchSize: cfg.Progression.PenaltyBatchSize,
			},
		)
		job := jobs.NewDeadlinePenaltyJob(sweeper, rt.locker, rt.log)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(cfg.Scheduler.DeadlinePenaltyInterval)); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	if rt.leaderboard != nil && cfg.Features.IsEnabled(config.FeatureLeaderboardCache, nil) {
		cron, err := scheduler.ParseCronExpression(cfg.Scheduler.RebuildLeaderboardCron)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULER_REBUILD_LEADERBOARD_CRON: %w", err)
		}
		job := jobs.NewRebuildLeaderboardJob(rt.store, rt.leaderboard, rt.locker, rt.log, jobs.RebuildLeaderboardConfig{
			Limit:   cfg.Progression.LeaderboardSize,
			Timeout: cfg.Scheduler.JobTimeout,
		})
		if err := sched.Register(job, cron); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	return sched, nil
}

func (rt *runtime) healthChecker() *handlers.CompositeHealthChecker {
	health := handlers.NewCompositeHealthChecker(rt.cfg.App.Version)
	if rt.dbConn != nil {
		health.AddCheck("postgres", handlers.NewPingCheck(rt.dbConn))
	}
	if rt.cache != nil {
		health.AddOptionalCheck("redis", handlers.NewPingCheck(rt.cache))
	}
	return health
}

// ══════════════════════════════════════════════════════════════════════════════
// BACKENDS
// ══════════════════════════════════════════════════════════════════════════════

// setupStore connects Postgres, or falls back to the in-memory store when
// no database is configured.
func setupStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (uow.UnitOfWork, *postgres.Connection, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using the in-memory store; state is lost on exit")
		return memory.NewStore(), nil, nil
	}

	log.Info("connecting to database...")
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.MigrateOnStart {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations applied", "count", applied)
	}

	return postgres.NewUnitOfWork(conn, log), conn, nil
}

func setupRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Cache, error) {
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout

	cache, err := redis.NewCache(rc,
		circuitbreaker.WithFailureThreshold(cfg.Redis.BreakerThreshold),
		circuitbreaker.WithTimeout(cfg.Redis.BreakerTimeout),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
	)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		_ = cache.Close()
		return nil, err
	}

	log.Info("connected to redis", "addr", rc.Addr())
	return cache, nil
}
