package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cpamm/internal/derive"
	"cpamm/internal/events"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Deposit adds liquidity to a pool. An empty pool takes exactly MaxX and MaxY
// and mints LPAmount; otherwise the required amounts are the ceiling of the
// pool's per-unit reserves times LPAmount and must fit within the caps. Any
// error leaves balances, reserves and supply untouched.
func (k *Keeper) Deposit(ctx context.Context, req model.DepositRequest) (model.DepositResult, error) {
	start := time.Now()
	res, err := k.deposit(ctx, req)
	k.metrics.ObserveDeposit(Outcome(err), time.Since(start))
	if err != nil {
		logDepositRejected(k.logger, req, err)
		return model.DepositResult{}, err
	}

	pool := res.Pool.Hex()
	k.metrics.RecordMint(pool, res.LPMinted)
	if cfg, ok := k.verified.Get(res.Pool); ok {
		k.metrics.RecordState(pool, cfg.AssetX.Hex(), cfg.AssetY.Hex(), res.ReserveX, res.ReserveY, res.LPSupply)
	}
	k.emit(events.EncodeDeposit(res, k.now()))

	k.logger.Info("deposit committed",
		zap.String("id", res.ID.String()),
		zap.String("pool", pool),
		zap.String("depositor", res.Depositor.Hex()),
		zap.Bool("bootstrap", res.Bootstrap),
		zap.Uint64("x_taken", res.XTaken),
		zap.Uint64("y_taken", res.YTaken),
		zap.Uint64("lp_minted", res.LPMinted),
		zap.Uint64("reserve_x", res.ReserveX),
		zap.Uint64("reserve_y", res.ReserveY),
		zap.Uint64("lp_supply", res.LPSupply),
	)
	return res, nil
}

func logDepositRejected(logger *zap.Logger, req model.DepositRequest, err error) {
	fields := []zap.Field{
		zap.String("pool", req.Pool.Hex()),
		zap.String("depositor", req.Depositor.Hex()),
		zap.Uint64("lp_amount", req.LPAmount),
		zap.Uint64("max_x", req.MaxX),
		zap.Uint64("max_y", req.MaxY),
		zap.String("outcome", Outcome(err)),
		zap.Error(err),
	}
	if errors.Is(err, ErrRatioViolation) || errors.Is(err, ledger.ErrConflict) {
		logger.Debug("deposit rejected", fields...)
		return
	}
	logger.Warn("deposit rejected", fields...)
}

func (k *Keeper) deposit(ctx context.Context, req model.DepositRequest) (model.DepositResult, error) {
	if req.LPAmount == 0 {
		return model.DepositResult{}, fmt.Errorf("%w: lp amount", ErrZeroAmount)
	}

	unlock := k.locks.lock(req.Pool)
	defer unlock()

	var res model.DepositResult
	err := k.store.Update(ctx, func(tx ledger.Tx) error {
		pool, err := tx.Pool(ctx, req.Pool)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrPoolNotFound, req.Pool.Hex())
			}
			return fmt.Errorf("load pool: %w", err)
		}
		if err := k.verifyPool(pool); err != nil {
			return err
		}
		if err := checkRequestAccounts(pool, req); err != nil {
			return err
		}

		custody := ledger.NewCustody(tx)
		state, err := loadState(ctx, tx, pool)
		if err != nil {
			return err
		}

		plan, err := PlanDeposit(state, req.LPAmount, req.MaxX, req.MaxY)
		if err != nil {
			return err
		}
		staged, err := plan.Stage(state)
		if err != nil {
			return err
		}
		if err := checkNoDilution(state, staged); err != nil {
			return err
		}

		userX, userY, userLP, err := k.userAccounts(pool, req)
		if err != nil {
			return err
		}
		if err := custody.Transfer(ctx, userX, pool.VaultX, req.Depositor, pool.AssetX, plan.X); err != nil {
			return fmt.Errorf("transfer x: %w", err)
		}
		if err := custody.Transfer(ctx, userY, pool.VaultY, req.Depositor, pool.AssetY, plan.Y); err != nil {
			return fmt.Errorf("transfer y: %w", err)
		}
		if _, err := custody.EnsureAccount(ctx, userLP, pool.LPMint, req.Depositor); err != nil {
			return fmt.Errorf("lp account: %w", err)
		}
		if err := custody.MintTo(ctx, pool.LPMint, pool.Address, userLP, plan.LP); err != nil {
			return fmt.Errorf("mint lp: %w", err)
		}

		committed, err := loadState(ctx, tx, pool)
		if err != nil {
			return err
		}
		if committed != staged {
			return fmt.Errorf("%w: applied %+v, staged %+v", ErrInvalidPoolState, committed, staged)
		}

		res = model.DepositResult{
			ID:        uuid.New(),
			Pool:      pool.Address,
			Depositor: req.Depositor,
			XTaken:    plan.X,
			YTaken:    plan.Y,
			LPMinted:  plan.LP,
			Bootstrap: plan.Bootstrap,
			PoolState: staged,
		}
		return nil
	})
	if err != nil {
		return model.DepositResult{}, err
	}
	return res, nil
}

// verifyPool checks that the recorded addresses are the canonical derivations
// for the pool's asset pair.
func (k *Keeper) verifyPool(pool model.PoolConfig) error {
	if k.verified.Has(pool) {
		return nil
	}
	if err := derive.Verify(k.programID, pool.Address, pool.ConfigBump, derive.PoolSeeds(pool.AssetX, pool.AssetY)...); err != nil {
		return fmt.Errorf("%w: pool: %v", ErrVaultMismatch, err)
	}
	if err := derive.Verify(k.programID, pool.LPMint, pool.LPBump, derive.LPMintSeeds(pool.Address)...); err != nil {
		return fmt.Errorf("%w: lp mint: %v", ErrVaultMismatch, err)
	}
	for _, v := range []struct {
		asset, vault common.Address
	}{
		{pool.AssetX, pool.VaultX},
		{pool.AssetY, pool.VaultY},
	} {
		want, err := derive.AssociatedAccount(k.programID, pool.Address, v.asset)
		if err != nil {
			return fmt.Errorf("derive vault: %w", err)
		}
		if want != v.vault {
			return fmt.Errorf("%w: vault %s for %s, derived %s", ErrVaultMismatch, v.vault.Hex(), v.asset.Hex(), want.Hex())
		}
	}
	k.verified.Set(pool)
	return nil
}

// checkRequestAccounts compares the references a caller supplied with the
// pool's recorded addresses. Zero references are not checked.
func checkRequestAccounts(pool model.PoolConfig, req model.DepositRequest) error {
	checks := []struct {
		name      string
		got, want common.Address
	}{
		{"asset x", req.AssetX, pool.AssetX},
		{"asset y", req.AssetY, pool.AssetY},
		{"vault x", req.VaultX, pool.VaultX},
		{"vault y", req.VaultY, pool.VaultY},
		{"lp mint", req.LPMint, pool.LPMint},
	}
	for _, c := range checks {
		if c.got != (common.Address{}) && c.got != c.want {
			return fmt.Errorf("%w: %s %s, pool has %s", ErrVaultMismatch, c.name, c.got.Hex(), c.want.Hex())
		}
	}
	if req.Depositor == pool.Address {
		return fmt.Errorf("%w: pool cannot deposit into itself", ErrVaultMismatch)
	}
	return nil
}

func (k *Keeper) userAccounts(pool model.PoolConfig, req model.DepositRequest) (common.Address, common.Address, common.Address, error) {
	resolve := func(given, mint common.Address) (common.Address, error) {
		if given != (common.Address{}) {
			return given, nil
		}
		return derive.AssociatedAccount(k.programID, req.Depositor, mint)
	}

	userX, err := resolve(req.UserX, pool.AssetX)
	if err != nil {
		return common.Address{}, common.Address{}, common.Address{}, fmt.Errorf("derive user x: %w", err)
	}
	userY, err := resolve(req.UserY, pool.AssetY)
	if err != nil {
		return common.Address{}, common.Address{}, common.Address{}, fmt.Errorf("derive user y: %w", err)
	}
	userLP, err := resolve(req.UserLP, pool.LPMint)
	if err != nil {
		return common.Address{}, common.Address{}, common.Address{}, fmt.Errorf("derive user lp: %w", err)
	}
	for _, acct := range []common.Address{userX, userY, userLP} {
		if acct == pool.VaultX || acct == pool.VaultY {
			return common.Address{}, common.Address{}, common.Address{}, fmt.Errorf("%w: %s is a pool vault", ErrVaultMismatch, acct.Hex())
		}
	}
	return userX, userY, userLP, nil
}

// loadState reads vault balances and LP supply, checking that the vaults and
// mint still belong to the pool.
func loadState(ctx context.Context, r ledger.Reader, pool model.PoolConfig) (model.PoolState, error) {
	vaultX, err := loadVault(ctx, r, pool, pool.VaultX, pool.AssetX)
	if err != nil {
		return model.PoolState{}, err
	}
	vaultY, err := loadVault(ctx, r, pool, pool.VaultY, pool.AssetY)
	if err != nil {
		return model.PoolState{}, err
	}

	mint, err := r.Mint(ctx, pool.LPMint)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return model.PoolState{}, fmt.Errorf("%w: lp mint %s missing", ErrVaultMismatch, pool.LPMint.Hex())
		}
		return model.PoolState{}, fmt.Errorf("load lp mint: %w", err)
	}
	if mint.Authority != pool.Address {
		return model.PoolState{}, fmt.Errorf("%w: lp mint authority %s", ErrVaultMismatch, mint.Authority.Hex())
	}

	return model.PoolState{
		ReserveX: vaultX.Amount,
		ReserveY: vaultY.Amount,
		LPSupply: mint.Supply,
	}, nil
}

func loadVault(ctx context.Context, r ledger.Reader, pool model.PoolConfig, addr, asset common.Address) (model.TokenAccount, error) {
	vault, err := r.Account(ctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return model.TokenAccount{}, fmt.Errorf("%w: vault %s missing", ErrVaultMismatch, addr.Hex())
		}
		return model.TokenAccount{}, fmt.Errorf("load vault: %w", err)
	}
	if vault.Mint != asset || vault.Owner != pool.Address {
		return model.TokenAccount{}, fmt.Errorf("%w: vault %s holds %s for %s", ErrVaultMismatch, addr.Hex(), vault.Mint.Hex(), vault.Owner.Hex())
	}
	return vault, nil
}
