package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/derive"
	"cpamm/internal/events"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Initialize creates the pool configuration, both reserve vaults and the LP
// mint for an unordered asset pair. Either all of them are created or none.
func (k *Keeper) Initialize(ctx context.Context, req model.InitializeRequest) (model.PoolConfig, error) {
	pool, err := k.initialize(ctx, req)
	if err != nil {
		k.logger.Warn("initialize rejected",
			zap.String("asset_x", req.AssetX.Hex()),
			zap.String("asset_y", req.AssetY.Hex()),
			zap.Uint16("fee_bps", req.FeeBps),
			zap.String("outcome", Outcome(err)),
			zap.Error(err),
		)
		return model.PoolConfig{}, err
	}

	k.verified.Set(pool)
	k.metrics.RecordPoolInitialized()
	k.metrics.RecordState(pool.Address.Hex(), pool.AssetX.Hex(), pool.AssetY.Hex(), 0, 0, 0)
	k.emit(events.EncodePoolInitialized(pool, k.now()))

	k.logger.Info("pool initialized",
		zap.String("pool", pool.Address.Hex()),
		zap.String("asset_x", pool.AssetX.Hex()),
		zap.String("asset_y", pool.AssetY.Hex()),
		zap.String("lp_mint", pool.LPMint.Hex()),
		zap.Uint16("fee_bps", pool.FeeBps),
		zap.Bool("has_authority", pool.HasAuthority()),
	)
	return pool, nil
}

func (k *Keeper) initialize(ctx context.Context, req model.InitializeRequest) (model.PoolConfig, error) {
	if req.FeeBps > MaxFeeBps {
		return model.PoolConfig{}, fmt.Errorf("%w: %d > %d", ErrInvalidFeeRange, req.FeeBps, MaxFeeBps)
	}
	if req.AssetX == (common.Address{}) || req.AssetY == (common.Address{}) {
		return model.PoolConfig{}, fmt.Errorf("%w: zero asset", ErrUnknownAsset)
	}
	if req.AssetX == req.AssetY {
		return model.PoolConfig{}, fmt.Errorf("%w: %s", ErrIdenticalAssets, req.AssetX.Hex())
	}

	pool, err := k.derivePool(req)
	if err != nil {
		return model.PoolConfig{}, err
	}

	unlock := k.locks.lock(pool.Address)
	defer unlock()

	err = k.store.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Pool(ctx, pool.Address); err == nil {
			return fmt.Errorf("%w: %s", ErrAlreadyInitialized, pool.Address.Hex())
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return fmt.Errorf("load pool: %w", err)
		}

		custody := ledger.NewCustody(tx)
		for _, asset := range []common.Address{pool.AssetX, pool.AssetY} {
			if _, err := custody.Supply(ctx, asset); err != nil {
				if errors.Is(err, ledger.ErrMintNotFound) {
					return fmt.Errorf("%w: %s", ErrUnknownAsset, asset.Hex())
				}
				return fmt.Errorf("load asset: %w", err)
			}
		}

		if _, err := custody.CreateMint(ctx, pool.LPMint, pool.Address, LPDecimals); err != nil {
			return alreadyInitialized(err, "lp mint")
		}
		if _, err := custody.OpenAccount(ctx, pool.VaultX, pool.AssetX, pool.Address); err != nil {
			return alreadyInitialized(err, "vault x")
		}
		if _, err := custody.OpenAccount(ctx, pool.VaultY, pool.AssetY, pool.Address); err != nil {
			return alreadyInitialized(err, "vault y")
		}
		if err := tx.PutPool(ctx, pool); err != nil {
			return fmt.Errorf("put pool: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.PoolConfig{}, err
	}
	return pool, nil
}

func (k *Keeper) derivePool(req model.InitializeRequest) (model.PoolConfig, error) {
	poolAddr, configBump, err := derive.PoolAddress(k.programID, req.AssetX, req.AssetY)
	if err != nil {
		return model.PoolConfig{}, fmt.Errorf("derive pool: %w", err)
	}
	lpMint, lpBump, err := derive.LPMintAddress(k.programID, poolAddr)
	if err != nil {
		return model.PoolConfig{}, fmt.Errorf("derive lp mint: %w", err)
	}
	vaultX, err := derive.AssociatedAccount(k.programID, poolAddr, req.AssetX)
	if err != nil {
		return model.PoolConfig{}, fmt.Errorf("derive vault x: %w", err)
	}
	vaultY, err := derive.AssociatedAccount(k.programID, poolAddr, req.AssetY)
	if err != nil {
		return model.PoolConfig{}, fmt.Errorf("derive vault y: %w", err)
	}

	return model.PoolConfig{
		Address:    poolAddr,
		AssetX:     req.AssetX,
		AssetY:     req.AssetY,
		Authority:  req.Authority,
		FeeBps:     req.FeeBps,
		ConfigBump: configBump,
		LPBump:     lpBump,
		LPMint:     lpMint,
		VaultX:     vaultX,
		VaultY:     vaultY,
		CreatedAt:  uint64(k.now().Unix()),
	}, nil
}

func alreadyInitialized(err error, what string) error {
	if errors.Is(err, ledger.ErrAlreadyExists) {
		return fmt.Errorf("%w: %s exists", ErrAlreadyInitialized, what)
	}
	return fmt.Errorf("create %s: %w", what, err)
}
