package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// PoolState is the reserve and supply snapshot a deposit is priced against.
type PoolState struct {
	ReserveX uint64 `json:"reserve_x"`
	ReserveY uint64 `json:"reserve_y"`
	LPSupply uint64 `json:"lp_supply"`
}

// Empty reports whether no LP units have been issued.
func (s PoolState) Empty() bool {
	return s.LPSupply == 0
}

// DepositRequest asks to mint LPAmount units in exchange for at most MaxX and
// MaxY of the pool assets. Zero-valued account references are derived.
type DepositRequest struct {
	Pool      common.Address `json:"pool"`
	Depositor common.Address `json:"depositor"`
	LPAmount  uint64         `json:"lp_amount"`
	MaxX      uint64         `json:"max_x"`
	MaxY      uint64         `json:"max_y"`

	AssetX common.Address `json:"asset_x,omitempty"`
	AssetY common.Address `json:"asset_y,omitempty"`
	VaultX common.Address `json:"vault_x,omitempty"`
	VaultY common.Address `json:"vault_y,omitempty"`
	LPMint common.Address `json:"lp_mint,omitempty"`
	UserX  common.Address `json:"user_x,omitempty"`
	UserY  common.Address `json:"user_y,omitempty"`
	UserLP common.Address `json:"user_lp,omitempty"`
}

// DepositResult reports the committed amounts and the post-commit pool state.
type DepositResult struct {
	ID        uuid.UUID      `json:"id"`
	Pool      common.Address `json:"pool"`
	Depositor common.Address `json:"depositor"`
	XTaken    uint64         `json:"x_taken"`
	YTaken    uint64         `json:"y_taken"`
	LPMinted  uint64         `json:"lp_minted"`
	Bootstrap bool           `json:"bootstrap"`
	PoolState
}
