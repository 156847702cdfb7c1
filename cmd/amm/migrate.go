package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/config"
	"cpamm/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back Postgres schema migrations",
		RunE:  runMigrate,
	}
	cmd.Flags().Int("down", 0, "roll back this many migrations instead of applying")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	down, _ := cmd.Flags().GetInt("down")
	if down > 0 {
		n, err := store.Rollback(ctx, down)
		if err != nil {
			return err
		}
		logger.Info("migrations rolled back", zap.Int("count", n))
		return nil
	}

	n, err := store.Migrate(ctx)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", zap.Int("count", n))
	return nil
}
