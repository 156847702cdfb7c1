package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/derive"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Pool returns the configuration stored at addr.
func (k *Keeper) Pool(ctx context.Context, addr common.Address) (model.PoolConfig, error) {
	var pool model.PoolConfig
	err := k.store.View(ctx, func(r ledger.Reader) error {
		var err error
		pool, err = readPool(ctx, r, addr)
		return err
	})
	return pool, err
}

// FindPool returns the pool for an asset pair in either order.
func (k *Keeper) FindPool(ctx context.Context, a, b common.Address) (model.PoolConfig, error) {
	addr, _, err := derive.PoolAddress(k.programID, a, b)
	if err != nil {
		return model.PoolConfig{}, fmt.Errorf("derive pool: %w", err)
	}
	return k.Pool(ctx, addr)
}

// State returns the pool's reserves and LP supply.
func (k *Keeper) State(ctx context.Context, addr common.Address) (model.PoolState, error) {
	var state model.PoolState
	err := k.store.View(ctx, func(r ledger.Reader) error {
		pool, err := readPool(ctx, r, addr)
		if err != nil {
			return err
		}
		state, err = loadState(ctx, r, pool)
		return err
	})
	return state, err
}

// Balance returns what owner holds of mint in its associated account.
func (k *Keeper) Balance(ctx context.Context, owner, mint common.Address) (uint64, error) {
	addr, err := derive.AssociatedAccount(k.programID, owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive account: %w", err)
	}
	var amount uint64
	err = k.store.View(ctx, func(r ledger.Reader) error {
		account, err := r.Account(ctx, addr)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		amount = account.Amount
		return nil
	})
	return amount, err
}

func readPool(ctx context.Context, r ledger.Reader, addr common.Address) (model.PoolConfig, error) {
	pool, err := r.Pool(ctx, addr)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return model.PoolConfig{}, fmt.Errorf("%w: %s", ErrPoolNotFound, addr.Hex())
		}
		return model.PoolConfig{}, fmt.Errorf("load pool: %w", err)
	}
	return pool, nil
}

// Mint returns the asset stored at addr.
func (k *Keeper) Mint(ctx context.Context, addr common.Address) (model.Mint, error) {
	var mint model.Mint
	err := k.store.View(ctx, func(r ledger.Reader) error {
		var err error
		mint, err = r.Mint(ctx, addr)
		return err
	})
	return mint, err
}
