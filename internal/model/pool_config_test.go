package model

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestPoolConfigVaultFor(t *testing.T) {
	cfg := PoolConfig{
		AssetX: common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		AssetY: common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		VaultX: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		VaultY: common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}

	vault, ok := cfg.VaultFor(cfg.AssetY)
	if !ok || vault != cfg.VaultY {
		t.Fatalf("vault for asset y mismatch: %s", vault.Hex())
	}
	if _, ok := cfg.VaultFor(common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")); ok {
		t.Fatalf("unexpected vault for foreign asset")
	}
}

func TestPoolConfigHasAuthority(t *testing.T) {
	var cfg PoolConfig
	if cfg.HasAuthority() {
		t.Fatalf("zero authority should mean none")
	}
	cfg.Authority = common.HexToAddress("0x3333333333333333333333333333333333333333")
	if !cfg.HasAuthority() {
		t.Fatalf("authority not reported")
	}
}
