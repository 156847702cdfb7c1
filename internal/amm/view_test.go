package amm

import (
	"context"
	"encoding/json"
	"testing"

	"cpamm/internal/model"
)

func TestNewPoolView(t *testing.T) {
	pool := model.PoolConfig{Address: testProgram, AssetX: assetX, AssetY: assetY, FeeBps: 30}
	view := NewPoolView(pool, model.PoolState{ReserveX: 100_000_000, ReserveY: 200_000_000_000, LPSupply: 1_000_000}, 6, 9)

	if view.ReserveX.String() != "100" || view.ReserveY.String() != "200" || view.LPSupply.String() != "1" {
		t.Fatalf("scaled amounts mismatch: %s %s %s", view.ReserveX, view.ReserveY, view.LPSupply)
	}
	if view.FeePercent.String() != "0.3" {
		t.Fatalf("fee percent mismatch: %s", view.FeePercent)
	}
	if view.PriceX.String() != "2" {
		t.Fatalf("price mismatch: %s", view.PriceX)
	}
	if view.Authority != "" {
		t.Fatalf("authority should be omitted: %q", view.Authority)
	}
}

func TestNewPoolViewEmpty(t *testing.T) {
	view := NewPoolView(model.PoolConfig{Authority: authority}, model.PoolState{}, 6, 6)
	if !view.PriceX.IsZero() {
		t.Fatalf("empty pool price should be zero: %s", view.PriceX)
	}
	if view.Authority != authority.Hex() {
		t.Fatalf("authority mismatch: %s", view.Authority)
	}
}

func TestKeeperView(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(t, 25)
	f.fund(t, alice, assetX, seedX)
	f.fund(t, alice, assetY, seedY)
	if _, err := f.deposit(pool.Address, alice, seedLP, seedX, seedY); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	view, err := f.keeper.View(context.Background(), pool.Address)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	// assetY carries 9 decimals in the fixture.
	if view.ReserveX.String() != "100" || view.ReserveY.String() != "0.2" {
		t.Fatalf("reserves mismatch: %s %s", view.ReserveX, view.ReserveY)
	}
	if view.PriceX.String() != "0.002" {
		t.Fatalf("price mismatch: %s", view.PriceX)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["reserve_x"] != "100" || decoded["fee_percent"] != "0.25" {
		t.Fatalf("json mismatch: %s", raw)
	}

	_, err = f.keeper.View(context.Background(), alice)
	expectErr(t, err, ErrPoolNotFound)
}
