package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/amm"
	"cpamm/internal/config"
	"cpamm/internal/ledger"
	"cpamm/internal/metrics"
	"cpamm/internal/storage"
	"cpamm/internal/storage/postgres"
)

// runtime bundles the keeper with the store it was opened on.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	keeper   *amm.Keeper
	metrics  *metrics.Metrics
	memory   *ledger.MemoryStore
	snapshot *ledger.SnapshotFile
	pg       *postgres.Store
}

func loadRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return rt, nil
}

func openRuntime(ctx context.Context, cfg config.Config, logger *zap.Logger) (*runtime, error) {
	programID := amm.DefaultProgramID
	if cfg.ProgramID != "" {
		var err error
		if programID, err = parseAddress("program-id", cfg.ProgramID); err != nil {
			return nil, err
		}
	}

	rt := &runtime{cfg: cfg, logger: logger, metrics: metrics.New(nil)}

	var store ledger.Store
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Migrate {
			applied, err := pg.Migrate(ctx)
			if err != nil {
				pg.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			if applied > 0 {
				logger.Info("migrations applied", zap.Int("count", applied))
			}
		}
		rt.pg = pg
		store = pg
	} else {
		if cfg.StateFile == "" {
			return nil, fmt.Errorf("state file or pg dsn is required")
		}
		rt.snapshot = ledger.NewSnapshotFile(cfg.StateFile)
		mem, err := ledger.OpenMemoryStore(rt.snapshot)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		rt.memory = mem
		store = mem
	}

	opts := []amm.Option{amm.WithMetrics(rt.metrics)}
	if cfg.Journal != "" {
		opts = append(opts, amm.WithJournal(storage.NewJSONLJournal(cfg.Journal)))
	}
	keeper, err := amm.NewKeeper(store, programID, logger, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.keeper = keeper
	return rt, nil
}

// persist writes the in-memory ledger back to its snapshot file.
func (r *runtime) persist() error {
	if r.memory == nil {
		return nil
	}
	if err := r.snapshot.Save(r.memory.Snapshot()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (r *runtime) Close() {
	if r.pg != nil {
		r.pg.Close()
	}
	_ = r.logger.Sync()
}
