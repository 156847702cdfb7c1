package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger schema",
		Up: `
		CREATE TABLE IF NOT EXISTS amm_mints (
			address TEXT PRIMARY KEY,
			authority TEXT NOT NULL,
			decimals SMALLINT NOT NULL,
			supply NUMERIC(20,0) NOT NULL CHECK (supply >= 0),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS amm_token_accounts (
			address TEXT PRIMARY KEY,
			mint TEXT NOT NULL REFERENCES amm_mints(address),
			owner TEXT NOT NULL,
			amount NUMERIC(20,0) NOT NULL CHECK (amount >= 0),
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_amm_token_accounts_owner ON amm_token_accounts(owner);
		CREATE INDEX IF NOT EXISTS idx_amm_token_accounts_mint ON amm_token_accounts(mint);

		CREATE TABLE IF NOT EXISTS amm_pools (
			address TEXT PRIMARY KEY,
			asset_x TEXT NOT NULL REFERENCES amm_mints(address),
			asset_y TEXT NOT NULL REFERENCES amm_mints(address),
			authority TEXT NOT NULL,
			fee_bps INT NOT NULL CHECK (fee_bps BETWEEN 0 AND 10000),
			config_bump SMALLINT NOT NULL,
			lp_bump SMALLINT NOT NULL,
			lp_mint TEXT NOT NULL REFERENCES amm_mints(address),
			vault_x TEXT NOT NULL REFERENCES amm_token_accounts(address),
			vault_y TEXT NOT NULL REFERENCES amm_token_accounts(address),
			created_at BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		`,
		Down: `
		DROP TABLE IF EXISTS amm_pools;
		DROP TABLE IF EXISTS amm_token_accounts;
		DROP TABLE IF EXISTS amm_mints;
		`,
	},
}

type Migrator struct {
	pool *pgxpool.Pool
}

func NewMigrator(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT NOW()
	);
	`)
	return err
}

// Version returns the highest applied migration.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}
	var version int
	err := m.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Up applies every pending migration in one transaction and returns how many
// were applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	current, err := m.Version(ctx)
	if err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	applied := 0
	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}
		if _, err := tx.Exec(ctx, migration.Up); err != nil {
			return 0, fmt.Errorf("apply migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			return 0, fmt.Errorf("record migration %d: %w", migration.Version, err)
		}
		applied++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit migrations: %w", err)
	}
	return applied, nil
}

// Down rolls back up to steps applied migrations, newest first.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	current, err := m.Version(ctx)
	if err != nil {
		return 0, fmt.Errorf("current version: %w", err)
	}
	if current == 0 {
		return 0, fmt.Errorf("no migrations to roll back")
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rolledBack := 0
	for i := len(migrations) - 1; i >= 0 && rolledBack < steps; i-- {
		migration := migrations[i]
		if migration.Version > current {
			continue
		}
		if _, err := tx.Exec(ctx, migration.Down); err != nil {
			return 0, fmt.Errorf("roll back migration %d: %w", migration.Version, err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return 0, fmt.Errorf("remove migration record %d: %w", migration.Version, err)
		}
		rolledBack++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rollback: %w", err)
	}
	return rolledBack, nil
}
