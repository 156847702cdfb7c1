package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/derive"
	"cpamm/internal/ledger"
)

func TestFundCreatesMintAndAccount(t *testing.T) {
	f := newFixture(t)
	f.fund(t, alice, assetX, 500)
	f.fund(t, alice, assetX, 250)

	if got := f.balance(t, alice, assetX); got != 750 {
		t.Fatalf("balance mismatch: %d", got)
	}
	addr, err := derive.AssociatedAccount(testProgram, alice, assetX)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	snap := f.store.Snapshot()
	if len(snap.Mints) != 1 || snap.Mints[0].Supply != 750 || snap.Mints[0].Authority != faucet {
		t.Fatalf("mint mismatch: %+v", snap.Mints)
	}
	if len(snap.Accounts) != 1 || snap.Accounts[0].Address != addr {
		t.Fatalf("account mismatch: %+v", snap.Accounts)
	}
}

func TestFundRejections(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(t, 30)
	before := f.store.Snapshot()
	ctx := context.Background()

	_, err := f.keeper.Fund(ctx, FundRequest{Mint: assetX, Authority: bob, Decimals: 6, Owner: alice, Amount: 1})
	expectErr(t, err, ledger.ErrUnauthorized)

	_, err = f.keeper.Fund(ctx, FundRequest{Mint: pool.LPMint, Authority: pool.Address, Decimals: LPDecimals, Owner: alice, Amount: 1})
	expectErr(t, err, ledger.ErrUnauthorized)

	if _, err := f.keeper.Fund(ctx, FundRequest{Mint: assetX, Authority: faucet, Decimals: 8, Owner: alice, Amount: 1}); err == nil {
		t.Fatalf("expected decimals mismatch")
	}
	if _, err := f.keeper.Fund(ctx, FundRequest{Authority: faucet, Owner: alice, Amount: 1}); err == nil {
		t.Fatalf("expected missing mint rejection")
	}
	f.assertUnchanged(t, before)
}

func TestFundRejectsPoolOwner(t *testing.T) {
	f := newFixture(t)
	pool := f.initPool(t, 30)
	before := f.store.Snapshot()

	for _, mint := range []common.Address{assetX, assetY} {
		_, err := f.keeper.Fund(context.Background(), FundRequest{Mint: mint, Authority: faucet, Decimals: decimalsFor(mint), Owner: pool.Address, Amount: 5})
		expectErr(t, err, ledger.ErrUnauthorized)
	}
	f.assertUnchanged(t, before)

	if state := f.state(t, pool.Address); !state.Empty() {
		t.Fatalf("vault credited outside a deposit: %+v", state)
	}
	f.fund(t, alice, assetX, seedX)
	f.fund(t, alice, assetY, seedY)
	if _, err := f.deposit(pool.Address, alice, seedLP, seedX, seedY); err != nil {
		t.Fatalf("bootstrap after rejected fund: %v", err)
	}
}
