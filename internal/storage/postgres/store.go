package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Store keeps the ledger in Postgres. Update runs at SERIALIZABLE isolation
// and locks every row it reads.
type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	return NewMigrator(s.pool).Up(ctx)
}

func (s *Store) View(ctx context.Context, fn func(ledger.Reader) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, lock: true}); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// mapError reports serialization failures as ledger conflicts.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return fmt.Errorf("%w: %s", ledger.ErrConflict, pgErr.Message)
		}
	}
	return err
}

type pgTx struct {
	tx   pgx.Tx
	lock bool
}

func (t *pgTx) suffix() string {
	if t.lock {
		return " FOR UPDATE"
	}
	return ""
}

func (t *pgTx) Pool(ctx context.Context, addr common.Address) (model.PoolConfig, error) {
	var (
		pool                                           model.PoolConfig
		address, assetX, assetY, auth, lpMint, vX, vY string
		fee                                            int32
		configBump, lpBump                             int16
		createdAt                                      int64
	)
	row := t.tx.QueryRow(ctx, `
		SELECT address, asset_x, asset_y, authority, fee_bps, config_bump, lp_bump,
			lp_mint, vault_x, vault_y, created_at
		FROM amm_pools WHERE address=$1`+t.suffix(), hexAddr(addr))
	err := row.Scan(&address, &assetX, &assetY, &auth, &fee, &configBump, &lpBump, &lpMint, &vX, &vY, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pool, fmt.Errorf("pool %s: %w", addr.Hex(), ledger.ErrNotFound)
		}
		return pool, err
	}
	pool = model.PoolConfig{
		Address:    common.HexToAddress(address),
		AssetX:     common.HexToAddress(assetX),
		AssetY:     common.HexToAddress(assetY),
		Authority:  common.HexToAddress(auth),
		FeeBps:     uint16(fee),
		ConfigBump: uint8(configBump),
		LPBump:     uint8(lpBump),
		LPMint:     common.HexToAddress(lpMint),
		VaultX:     common.HexToAddress(vX),
		VaultY:     common.HexToAddress(vY),
		CreatedAt:  uint64(createdAt),
	}
	return pool, nil
}

func (t *pgTx) Mint(ctx context.Context, addr common.Address) (model.Mint, error) {
	var (
		address, auth, supply string
		decimals              int16
	)
	row := t.tx.QueryRow(ctx, `
		SELECT address, authority, decimals, supply::text
		FROM amm_mints WHERE address=$1`+t.suffix(), hexAddr(addr))
	if err := row.Scan(&address, &auth, &decimals, &supply); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Mint{}, fmt.Errorf("mint %s: %w", addr.Hex(), ledger.ErrNotFound)
		}
		return model.Mint{}, err
	}
	amount, err := parseAmount(supply)
	if err != nil {
		return model.Mint{}, fmt.Errorf("mint %s supply: %w", addr.Hex(), err)
	}
	return model.Mint{
		Address:   common.HexToAddress(address),
		Authority: common.HexToAddress(auth),
		Decimals:  uint8(decimals),
		Supply:    amount,
	}, nil
}

func (t *pgTx) Account(ctx context.Context, addr common.Address) (model.TokenAccount, error) {
	var address, mint, owner, balance string
	row := t.tx.QueryRow(ctx, `
		SELECT address, mint, owner, amount::text
		FROM amm_token_accounts WHERE address=$1`+t.suffix(), hexAddr(addr))
	if err := row.Scan(&address, &mint, &owner, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenAccount{}, fmt.Errorf("account %s: %w", addr.Hex(), ledger.ErrNotFound)
		}
		return model.TokenAccount{}, err
	}
	amount, err := parseAmount(balance)
	if err != nil {
		return model.TokenAccount{}, fmt.Errorf("account %s amount: %w", addr.Hex(), err)
	}
	return model.TokenAccount{
		Address: common.HexToAddress(address),
		Mint:    common.HexToAddress(mint),
		Owner:   common.HexToAddress(owner),
		Amount:  amount,
	}, nil
}

func (t *pgTx) PutPool(ctx context.Context, pool model.PoolConfig) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO amm_pools (
			address, asset_x, asset_y, authority, fee_bps, config_bump, lp_bump,
			lp_mint, vault_x, vault_y, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
		ON CONFLICT (address) DO UPDATE SET
			asset_x = EXCLUDED.asset_x,
			asset_y = EXCLUDED.asset_y,
			authority = EXCLUDED.authority,
			fee_bps = EXCLUDED.fee_bps,
			config_bump = EXCLUDED.config_bump,
			lp_bump = EXCLUDED.lp_bump,
			lp_mint = EXCLUDED.lp_mint,
			vault_x = EXCLUDED.vault_x,
			vault_y = EXCLUDED.vault_y,
			updated_at = now()
	`,
		hexAddr(pool.Address),
		hexAddr(pool.AssetX),
		hexAddr(pool.AssetY),
		hexAddr(pool.Authority),
		int32(pool.FeeBps),
		int16(pool.ConfigBump),
		int16(pool.LPBump),
		hexAddr(pool.LPMint),
		hexAddr(pool.VaultX),
		hexAddr(pool.VaultY),
		int64(pool.CreatedAt),
	)
	return err
}

func (t *pgTx) PutMint(ctx context.Context, mint model.Mint) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO amm_mints (address, authority, decimals, supply, updated_at)
		VALUES ($1, $2, $3, $4::numeric, now())
		ON CONFLICT (address) DO UPDATE SET
			authority = EXCLUDED.authority,
			decimals = EXCLUDED.decimals,
			supply = EXCLUDED.supply,
			updated_at = now()
	`,
		hexAddr(mint.Address),
		hexAddr(mint.Authority),
		int16(mint.Decimals),
		strconv.FormatUint(mint.Supply, 10),
	)
	return err
}

func (t *pgTx) PutAccount(ctx context.Context, account model.TokenAccount) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO amm_token_accounts (address, mint, owner, amount, updated_at)
		VALUES ($1, $2, $3, $4::numeric, now())
		ON CONFLICT (address) DO UPDATE SET
			mint = EXCLUDED.mint,
			owner = EXCLUDED.owner,
			amount = EXCLUDED.amount,
			updated_at = now()
	`,
		hexAddr(account.Address),
		hexAddr(account.Mint),
		hexAddr(account.Owner),
		strconv.FormatUint(account.Amount, 10),
	)
	return err
}

func hexAddr(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func parseAmount(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// Rollback reverts up to steps applied migrations.
func (s *Store) Rollback(ctx context.Context, steps int) (int, error) {
	return NewMigrator(s.pool).Down(ctx, steps)
}
