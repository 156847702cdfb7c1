package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"

	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

func TestMapError(t *testing.T) {
	for _, code := range []string{codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation} {
		err := mapError(fmt.Errorf("commit: %w", &pgconn.PgError{Code: code, Message: "could not serialize"}))
		if !errors.Is(err, ledger.ErrConflict) {
			t.Fatalf("code %s: expected conflict, got %v", code, err)
		}
	}
	other := &pgconn.PgError{Code: "23503"}
	if err := mapError(other); errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("foreign key violation reported as conflict")
	}
}

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("18446744073709551615")
	if err != nil || got != math.MaxUint64 {
		t.Fatalf("max amount: %d, %v", got, err)
	}
	if _, err := parseAmount("18446744073709551616"); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("AMM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AMM_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)
	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `TRUNCATE amm_pools, amm_token_accounts, amm_mints`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mint := model.Mint{Address: common.HexToAddress("0xaa"), Authority: common.HexToAddress("0xfa"), Decimals: 6, Supply: math.MaxUint64}
	account := model.TokenAccount{Address: common.HexToAddress("0xac"), Mint: mint.Address, Owner: common.HexToAddress("0x11"), Amount: math.MaxUint64}

	err := store.Update(ctx, func(tx ledger.Tx) error {
		if err := tx.PutMint(ctx, mint); err != nil {
			return err
		}
		return tx.PutAccount(ctx, account)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	err = store.View(ctx, func(r ledger.Reader) error {
		gotMint, err := r.Mint(ctx, mint.Address)
		if err != nil {
			return err
		}
		if gotMint != mint {
			t.Fatalf("mint mismatch: %+v", gotMint)
		}
		gotAccount, err := r.Account(ctx, account.Address)
		if err != nil {
			return err
		}
		if gotAccount != account {
			t.Fatalf("account mismatch: %+v", gotAccount)
		}
		_, err = r.Pool(ctx, mint.Address)
		if !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	mint := model.Mint{Address: common.HexToAddress("0xbb"), Decimals: 9}
	err := store.Update(ctx, func(tx ledger.Tx) error {
		if err := tx.PutMint(ctx, mint); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	err = store.View(ctx, func(r ledger.Reader) error {
		_, err := r.Mint(ctx, mint.Address)
		return err
	})
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected rolled back mint, got %v", err)
	}
}
