package amm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/derive"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// FundRequest mints Amount of an asset to Owner's associated account. The
// mint is created with Authority and Decimals if it does not exist yet.
type FundRequest struct {
	Mint      common.Address
	Authority common.Address
	Decimals  uint8
	Owner     common.Address
	Amount    uint64
}

// Fund issues test balances of a pool asset. It refuses to mint LP units,
// whose only authority is their pool, and to credit a pool's own accounts.
func (k *Keeper) Fund(ctx context.Context, req FundRequest) (model.TokenAccount, error) {
	if req.Mint == (common.Address{}) || req.Owner == (common.Address{}) {
		return model.TokenAccount{}, fmt.Errorf("mint and owner are required")
	}
	addr, err := derive.AssociatedAccount(k.programID, req.Owner, req.Mint)
	if err != nil {
		return model.TokenAccount{}, fmt.Errorf("derive account: %w", err)
	}

	var account model.TokenAccount
	err = k.store.Update(ctx, func(tx ledger.Tx) error {
		// Pool balances move only through deposits: a pool neither mints nor
		// receives issued units.
		for _, addr := range []common.Address{req.Authority, req.Owner} {
			if _, err := tx.Pool(ctx, addr); err == nil {
				return fmt.Errorf("%w: %s is a pool", ledger.ErrUnauthorized, addr.Hex())
			} else if !errors.Is(err, ledger.ErrNotFound) {
				return fmt.Errorf("load pool: %w", err)
			}
		}

		custody := ledger.NewCustody(tx)
		mint, err := tx.Mint(ctx, req.Mint)
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			if _, err := custody.CreateMint(ctx, req.Mint, req.Authority, req.Decimals); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("load mint: %w", err)
		case mint.Decimals != req.Decimals:
			return fmt.Errorf("mint %s has %d decimals, not %d", req.Mint.Hex(), mint.Decimals, req.Decimals)
		}

		if _, err := custody.EnsureAccount(ctx, addr, req.Mint, req.Owner); err != nil {
			return err
		}
		if req.Amount > 0 {
			if err := custody.MintTo(ctx, req.Mint, req.Authority, addr, req.Amount); err != nil {
				return err
			}
		}
		account, err = tx.Account(ctx, addr)
		return err
	})
	if err != nil {
		return model.TokenAccount{}, err
	}

	k.logger.Info("account funded",
		zap.String("mint", req.Mint.Hex()),
		zap.String("owner", req.Owner.Hex()),
		zap.String("account", addr.Hex()),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("balance", account.Amount),
	)
	return account, nil
}
