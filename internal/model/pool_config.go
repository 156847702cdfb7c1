package model

import "github.com/ethereum/go-ethereum/common"

// PoolConfig is the persisted configuration of a two-asset pool.
type PoolConfig struct {
	Address    common.Address `json:"address"`
	AssetX     common.Address `json:"asset_x"`
	AssetY     common.Address `json:"asset_y"`
	Authority  common.Address `json:"authority"`
	FeeBps     uint16         `json:"fee_bps"`
	ConfigBump uint8          `json:"config_bump"`
	LPBump     uint8          `json:"lp_bump"`
	LPMint     common.Address `json:"lp_mint"`
	VaultX     common.Address `json:"vault_x"`
	VaultY     common.Address `json:"vault_y"`
	CreatedAt  uint64         `json:"created_at"`
}

// HasAuthority reports whether a privileged principal was recorded.
func (p PoolConfig) HasAuthority() bool {
	return p.Authority != (common.Address{})
}

// VaultFor returns the reserve vault holding asset.
func (p PoolConfig) VaultFor(asset common.Address) (common.Address, bool) {
	switch asset {
	case p.AssetX:
		return p.VaultX, true
	case p.AssetY:
		return p.VaultY, true
	default:
		return common.Address{}, false
	}
}

// InitializeRequest carries the parameters of pool creation.
type InitializeRequest struct {
	FeeBps    uint16         `json:"fee_bps"`
	Authority common.Address `json:"authority"`
	AssetX    common.Address `json:"asset_x"`
	AssetY    common.Address `json:"asset_y"`
}
