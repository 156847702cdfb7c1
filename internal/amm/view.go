package amm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

const priceScale = 18

// PoolView is a display form of a pool with amounts scaled by decimals.
type PoolView struct {
	Pool       string          `json:"pool"`
	AssetX     string          `json:"asset_x"`
	AssetY     string          `json:"asset_y"`
	LPMint     string          `json:"lp_mint"`
	Authority  string          `json:"authority,omitempty"`
	FeeBps     uint16          `json:"fee_bps"`
	FeePercent decimal.Decimal `json:"fee_percent"`
	ReserveX   decimal.Decimal `json:"reserve_x"`
	ReserveY   decimal.Decimal `json:"reserve_y"`
	LPSupply   decimal.Decimal `json:"lp_supply"`
	PriceX     decimal.Decimal `json:"price_x_in_y"`
	State      model.PoolState `json:"raw"`
}

// NewPoolView scales raw amounts. PriceX is the Y amount per unit of X and is
// zero for an empty pool.
func NewPoolView(pool model.PoolConfig, state model.PoolState, decimalsX, decimalsY uint8) PoolView {
	view := PoolView{
		Pool:       pool.Address.Hex(),
		AssetX:     pool.AssetX.Hex(),
		AssetY:     pool.AssetY.Hex(),
		LPMint:     pool.LPMint.Hex(),
		FeeBps:     pool.FeeBps,
		FeePercent: decimal.New(int64(pool.FeeBps), -2),
		ReserveX:   scaleAmount(state.ReserveX, decimalsX),
		ReserveY:   scaleAmount(state.ReserveY, decimalsY),
		LPSupply:   scaleAmount(state.LPSupply, LPDecimals),
		State:      state,
	}
	if pool.HasAuthority() {
		view.Authority = pool.Authority.Hex()
	}
	if !view.ReserveX.IsZero() {
		view.PriceX = view.ReserveY.DivRound(view.ReserveX, priceScale)
	}
	return view
}

// View loads a pool with its state and asset precision.
func (k *Keeper) View(ctx context.Context, addr common.Address) (PoolView, error) {
	var view PoolView
	err := k.store.View(ctx, func(r ledger.Reader) error {
		pool, err := readPool(ctx, r, addr)
		if err != nil {
			return err
		}
		state, err := loadState(ctx, r, pool)
		if err != nil {
			return err
		}
		mintX, err := r.Mint(ctx, pool.AssetX)
		if err != nil {
			return err
		}
		mintY, err := r.Mint(ctx, pool.AssetY)
		if err != nil {
			return err
		}
		view = NewPoolView(pool, state, mintX.Decimals, mintY.Decimals)
		return nil
	})
	return view, err
}

func scaleAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}
