package model

// PoolInitializedData is the decoded PoolInitialized event payload.
type PoolInitializedData struct {
	Pool      string `json:"pool"`
	AssetX    string `json:"asset_x"`
	AssetY    string `json:"asset_y"`
	Authority string `json:"authority"`
	FeeBps    uint16 `json:"fee_bps"`
	LPMint    string `json:"lp_mint"`
}

// DepositEventData is the decoded Deposit event payload.
type DepositEventData struct {
	Pool      string `json:"pool"`
	Depositor string `json:"depositor"`
	AmountX   string `json:"amount_x"`
	AmountY   string `json:"amount_y"`
	LPMinted  string `json:"lp_minted"`
	ReserveX  string `json:"reserve_x"`
	ReserveY  string `json:"reserve_y"`
	LPSupply  string `json:"lp_supply"`
}
