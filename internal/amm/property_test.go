package amm

import (
	"errors"
	"math/big"
	"testing"

	"pgregory.net/rapid"

	"cpamm/internal/model"
)

const propertyMax = 1_000_000_000_000

// bootstrapped draws a pool seeded by alice, with alice holding enough of both
// assets for any further deposit of at most the seeded supply.
func bootstrapped(t *rapid.T) (*fixture, model.PoolConfig, model.PoolState) {
	f := newFixture(t)
	pool := f.initPool(t, uint16(rapid.IntRange(0, int(MaxFeeBps)).Draw(t, "fee")))

	x := rapid.Uint64Range(1, propertyMax).Draw(t, "seed_x")
	y := rapid.Uint64Range(1, propertyMax).Draw(t, "seed_y")
	lp := rapid.Uint64Range(1, propertyMax).Draw(t, "seed_lp")
	f.fund(t, alice, assetX, 2*x)
	f.fund(t, alice, assetY, 2*y)

	res, err := f.deposit(pool.Address, alice, lp, x, y)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return f, pool, res.PoolState
}

func TestPropertyBootstrapExactness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		pool := f.initPool(t, 30)
		x := rapid.Uint64Range(1, propertyMax).Draw(t, "max_x")
		y := rapid.Uint64Range(1, propertyMax).Draw(t, "max_y")
		lp := rapid.Uint64Range(1, propertyMax).Draw(t, "lp")
		f.fund(t, alice, assetX, x)
		f.fund(t, alice, assetY, y)

		res, err := f.deposit(pool.Address, alice, lp, x, y)
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
		want := model.PoolState{ReserveX: x, ReserveY: y, LPSupply: lp}
		if got := f.state(t, pool.Address); got != want || res.PoolState != want {
			t.Fatalf("state %+v != %+v", got, want)
		}
		if f.balance(t, alice, assetX) != 0 || f.balance(t, alice, assetY) != 0 {
			t.Fatalf("depositor not debited exactly")
		}
		if f.balance(t, alice, pool.LPMint) != lp {
			t.Fatalf("depositor lp balance mismatch")
		}
	})
}

func TestPropertyProportionalCeiling(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f, pool, before := bootstrapped(t)
		lp := rapid.Uint64Range(1, before.LPSupply).Draw(t, "lp")

		res, err := f.deposit(pool.Address, alice, lp, ^uint64(0), ^uint64(0))
		if err != nil {
			t.Fatalf("deposit: %v", err)
		}
		after := f.state(t, pool.Address)

		// Each amount is the smallest that keeps reserve per unit from falling.
		checkCeiling(t, res.XTaken, lp, before.ReserveX, before.LPSupply)
		checkCeiling(t, res.YTaken, lp, before.ReserveY, before.LPSupply)

		if after.LPSupply-before.LPSupply != res.LPMinted || res.LPMinted != lp {
			t.Fatalf("supply grew by %d, minted %d", after.LPSupply-before.LPSupply, res.LPMinted)
		}
		if err := checkNoDilution(before, after); err != nil {
			t.Fatalf("dilution: %v", err)
		}
	})
}

func TestPropertyRejectionIsAtomicAndRepeatable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f, pool, before := bootstrapped(t)
		lp := rapid.Uint64Range(1, before.LPSupply).Draw(t, "lp")
		quote, err := Quote(before, lp)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		maxX := rapid.Uint64Range(0, quote.X-1).Draw(t, "max_x")
		snap := f.store.Snapshot()

		_, first := f.deposit(pool.Address, alice, lp, maxX, ^uint64(0))
		if !errors.Is(first, ErrRatioViolation) {
			t.Fatalf("expected ratio violation, got %v", first)
		}
		f.assertUnchanged(t, snap)

		_, second := f.deposit(pool.Address, alice, lp, maxX, ^uint64(0))
		if second == nil || second.Error() != first.Error() {
			t.Fatalf("repeat rejection differs: %v vs %v", first, second)
		}
		f.assertUnchanged(t, snap)
	})
}

func TestPropertyRatioPreserved(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f, pool, before := bootstrapped(t)
		lp := rapid.Uint64Range(1, before.LPSupply).Draw(t, "lp")
		if _, err := f.deposit(pool.Address, alice, lp, ^uint64(0), ^uint64(0)); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		after := f.state(t, pool.Address)

		// |x'/y' - x/y| is bounded by the one unit of rounding on each side.
		ratioBefore := new(big.Rat).SetFrac(new(big.Int).SetUint64(before.ReserveX), new(big.Int).SetUint64(before.ReserveY))
		ratioAfter := new(big.Rat).SetFrac(new(big.Int).SetUint64(after.ReserveX), new(big.Int).SetUint64(after.ReserveY))
		diff := new(big.Rat).Sub(ratioAfter, ratioBefore)
		diff.Abs(diff)
		bound := new(big.Rat).SetFrac(
			new(big.Int).SetUint64(after.ReserveX+after.ReserveY),
			new(big.Int).Mul(new(big.Int).SetUint64(after.ReserveY), new(big.Int).SetUint64(before.ReserveY)),
		)
		if diff.Cmp(bound) > 0 {
			t.Fatalf("ratio drift %s exceeds %s", diff.FloatString(12), bound.FloatString(12))
		}
	})
}

func checkCeiling(t *rapid.T, taken, lp, reserve, supply uint64) {
	t.Helper()
	product := new(big.Int).Mul(new(big.Int).SetUint64(lp), new(big.Int).SetUint64(reserve))
	paid := new(big.Int).Mul(new(big.Int).SetUint64(taken), new(big.Int).SetUint64(supply))
	if paid.Cmp(product) < 0 {
		t.Fatalf("amount %d below lp*reserve/supply", taken)
	}
	if taken > 0 {
		under := new(big.Int).Mul(new(big.Int).SetUint64(taken-1), new(big.Int).SetUint64(supply))
		if under.Cmp(product) >= 0 {
			t.Fatalf("amount %d is not the ceiling", taken)
		}
	}
}
