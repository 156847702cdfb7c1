package amm

import (
	"context"
	"errors"

	"cpamm/internal/ledger"
)

var (
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrInvalidFeeRange    = errors.New("fee out of range")
	ErrVaultMismatch      = errors.New("account does not match pool")
	ErrZeroAmount         = errors.New("zero amount")
	ErrOverflow           = errors.New("arithmetic overflow")
	ErrRatioViolation     = errors.New("deposit exceeds slippage caps")
	ErrIdenticalAssets    = errors.New("pool assets must differ")
	ErrUnknownAsset       = errors.New("unknown asset")
	ErrPoolNotFound       = errors.New("pool not found")
	ErrInvalidPoolState   = errors.New("invalid pool state")
)

// Outcome maps an operation error to a stable label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrRatioViolation):
		return "ratio_violation"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrVaultMismatch):
		return "vault_mismatch"
	case errors.Is(err, ErrPoolNotFound):
		return "pool_not_found"
	case errors.Is(err, ErrInvalidPoolState):
		return "invalid_pool_state"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrInvalidFeeRange):
		return "invalid_fee_range"
	case errors.Is(err, ErrIdenticalAssets), errors.Is(err, ErrUnknownAsset):
		return "invalid_assets"
	case errors.Is(err, ledger.ErrConflict):
		return "conflict"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, ledger.ErrMintMismatch):
		return "bad_account"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
