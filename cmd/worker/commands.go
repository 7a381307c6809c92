package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lifequest/lifequest-core/config"
	"github.com/lifequest/lifequest-core/internal/application/command"
	"github.com/lifequest/lifequest-core/internal/domain/achievement"
	"github.com/lifequest/lifequest-core/pkg/logger"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "lifequest-worker",
		Short:         "LifeQuest progression worker",
		Long:          "Runs scheduled progression jobs, keeps cache projections current and serves health probes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(envFiles...)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	root.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load (default .env)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newRunJobCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, event projections and HTTP probes until stopped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required to migrate")
			}
			cfg.Database.MigrateOnStart = true

			_, conn, err := setupStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			conn.Close()
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the achievement catalog and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			store, conn, err := setupStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if conn != nil {
				defer conn.Close()
			}

			catalog := achievement.DefaultCatalog()
			if err := command.NewSeedCatalogHandler(store, log).Handle(cmd.Context(), catalog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d achievements\n", len(catalog))
			return nil
		},
	}
}

func newRunJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-job <name>",
		Short: "Run one scheduled job immediately and exit",
		Long:  "Runs a job once outside its schedule, e.g. deadline_penalty or rebuild_leaderboard.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			rt, err := newRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			sched, err := rt.scheduler()
			if err != nil {
				return err
			}
			result, err := sched.RunNow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s finished in %s\n", result.JobName, result.Duration)
			return nil
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	return serve(cmd.Context(), cfg, log)
}

// bootstrap loads configuration and installs the process logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, setupLogger(cfg), nil
}

// setupLogger configures slog: JSON in production, text in development
// unless LOG_FORMAT says otherwise.
func setupLogger(cfg *config.Config) *slog.Logger {
	format := logger.ParseFormat(cfg.Observability.LogFormat)
	if cfg.IsDevelopment() && os.Getenv("LOG_FORMAT") == "" {
		format = logger.FormatText
	}
	if cfg.IsProduction() {
		format = logger.FormatJSON
	}

	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	return logger.Setup(logger.Options{
		Level:  level,
		Format: format,
		Output: os.Stdout,
		Attrs: []slog.Attr{
			slog.String("service", cfg.App.Name),
		},
	})
}
