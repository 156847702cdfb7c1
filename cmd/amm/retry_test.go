package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/amm"
	"cpamm/internal/ledger"
)

func TestWithRetryRetriesConflicts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("commit: %w", ledger.ErrConflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnRejection(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return amm.ErrRatioViolation
	})
	if !errors.Is(err, amm.ErrRatioViolation) || calls != 1 {
		t.Fatalf("rejection retried: calls=%d err=%v", calls, err)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return ledger.ErrConflict
	})
	if !errors.Is(err, ledger.ErrConflict) || calls != 3 {
		t.Fatalf("expected 3 attempts ending in conflict: calls=%d err=%v", calls, err)
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return ledger.ErrConflict
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestWithHeadroom(t *testing.T) {
	if got := withHeadroom(10_000, 100); got != 10_100 {
		t.Fatalf("headroom mismatch: %d", got)
	}
	if got := withHeadroom(^uint64(0), 1); got != ^uint64(0) {
		t.Fatalf("expected saturation, got %d", got)
	}
}

func TestParseAddresses(t *testing.T) {
	got, err := parseAddresses("pool", []string{" 0x00000000000000000000000000000000000000aa", ""})
	if err != nil || len(got) != 1 {
		t.Fatalf("parse mismatch: %v %v", got, err)
	}
	if _, err := parseAddresses("pool", []string{"nope"}); err == nil {
		t.Fatalf("expected invalid address error")
	}
	if addr, err := parseOptionalAddress("authority", " "); err != nil || addr != (common.Address{}) {
		t.Fatalf("empty authority: %v %v", addr, err)
	}
}
