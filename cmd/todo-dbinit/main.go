package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"todo_api/internal/config"
	"todo_api/internal/storage/postgres"
	"todo_api/internal/storage/sqlite"
)

func main() {
	logger := log.New(os.Stdout, "todo-dbinit ", log.LstdFlags|log.LUTC)
	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	var (
		driver     string
		skipCreate bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "todo-dbinit",
		Short: "Create the todo database if needed and apply schema migrations",
		Long: `todo-dbinit prepares storage for todo-api.

For PostgreSQL it connects to the maintenance database (DB_ADMIN_NAME),
creates DB_NAME when it does not exist yet, then applies the embedded
migrations. For SQLite it only applies migrations to SQLITE_PATH.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			if driver != "" {
				cfg.DatabaseDriver = driver
			}
			if cfg.DatabaseDriver == config.DriverPostgres && cfg.DatabaseURL == "" {
				cfg.DatabaseURL = cfg.PostgresDSN(cfg.DBName)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return run(ctx, cfg, skipCreate, logger)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "override DATABASE_DRIVER (postgres|sqlite)")
	cmd.Flags().BoolVar(&skipCreate, "skip-create", false, "do not try to create the PostgreSQL database")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}

func run(ctx context.Context, cfg config.Config, skipCreate bool, logger *log.Logger) error {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("prepare sqlite: %w", err)
		}
		logger.Printf("sqlite schema ready at %s", cfg.SQLitePath)
		return store.Close()

	case config.DriverPostgres:
		if !skipCreate {
			adminDSN, name, err := cfg.BootstrapTarget()
			if err != nil {
				return err
			}
			if _, err := postgres.EnsureDatabase(ctx, adminDSN, name, logger); err != nil {
				return err
			}
		}
		db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			return err
		}
		logger.Printf("applied %d migration(s)", applied)
		return nil

	default:
		return fmt.Errorf("unsupported driver %q", cfg.DatabaseDriver)
	}
}
