package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"cpamm/internal/model"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrMintNotFound        = errors.New("mint not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrUnauthorized        = errors.New("unauthorized signer")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMintMismatch        = errors.New("account mint mismatch")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// Custody moves balances and issues units inside a single transaction.
type Custody struct {
	tx Tx
}

func NewCustody(tx Tx) *Custody {
	return &Custody{tx: tx}
}

// CreateMint registers a new mint with zero supply.
func (c *Custody) CreateMint(ctx context.Context, addr, authority common.Address, decimals uint8) (model.Mint, error) {
	if _, err := c.tx.Mint(ctx, addr); err == nil {
		return model.Mint{}, fmt.Errorf("mint %s: %w", addr.Hex(), ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return model.Mint{}, err
	}

	mint := model.Mint{Address: addr, Authority: authority, Decimals: decimals}
	if err := c.tx.PutMint(ctx, mint); err != nil {
		return model.Mint{}, fmt.Errorf("put mint: %w", err)
	}
	return mint, nil
}

// OpenAccount creates an empty account of mint for owner.
func (c *Custody) OpenAccount(ctx context.Context, addr, mint, owner common.Address) (model.TokenAccount, error) {
	if _, err := c.mint(ctx, mint); err != nil {
		return model.TokenAccount{}, err
	}
	if _, err := c.tx.Account(ctx, addr); err == nil {
		return model.TokenAccount{}, fmt.Errorf("account %s: %w", addr.Hex(), ErrAlreadyExists)
	} else if !errors.Is(err, ErrNotFound) {
		return model.TokenAccount{}, err
	}

	account := model.TokenAccount{Address: addr, Mint: mint, Owner: owner}
	if err := c.tx.PutAccount(ctx, account); err != nil {
		return model.TokenAccount{}, fmt.Errorf("put account: %w", err)
	}
	return account, nil
}

// EnsureAccount returns the account at addr, opening it if it does not exist.
// An existing account must hold mint for owner.
func (c *Custody) EnsureAccount(ctx context.Context, addr, mint, owner common.Address) (model.TokenAccount, error) {
	account, err := c.tx.Account(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return c.OpenAccount(ctx, addr, mint, owner)
	}
	if err != nil {
		return model.TokenAccount{}, err
	}
	if account.Mint != mint {
		return model.TokenAccount{}, fmt.Errorf("%w: %s holds %s", ErrMintMismatch, addr.Hex(), account.Mint.Hex())
	}
	if account.Owner != owner {
		return model.TokenAccount{}, fmt.Errorf("%w: %s is owned by %s", ErrUnauthorized, addr.Hex(), account.Owner.Hex())
	}
	return account, nil
}

// Balance returns the amount held by an account.
func (c *Custody) Balance(ctx context.Context, addr common.Address) (uint64, error) {
	account, err := c.account(ctx, addr)
	if err != nil {
		return 0, err
	}
	return account.Amount, nil
}

// Supply returns the outstanding supply of a mint.
func (c *Custody) Supply(ctx context.Context, addr common.Address) (uint64, error) {
	mint, err := c.mint(ctx, addr)
	if err != nil {
		return 0, err
	}
	return mint.Supply, nil
}

// Transfer moves amount of mint from one account to another. signer must own
// the source account and both accounts must hold mint.
func (c *Custody) Transfer(ctx context.Context, from, to, signer, mint common.Address, amount uint64) error {
	src, err := c.account(ctx, from)
	if err != nil {
		return err
	}
	if src.Owner != signer {
		return fmt.Errorf("%w: %s does not own %s", ErrUnauthorized, signer.Hex(), from.Hex())
	}
	if src.Mint != mint {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, from.Hex(), src.Mint.Hex())
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, from.Hex(), src.Amount, amount)
	}
	src.Amount -= amount
	if err := c.tx.PutAccount(ctx, src); err != nil {
		return fmt.Errorf("put account: %w", err)
	}

	dst, err := c.account(ctx, to)
	if err != nil {
		return err
	}
	if dst.Mint != mint {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, to.Hex(), dst.Mint.Hex())
	}
	if dst.Amount, err = addAmount(dst.Amount, amount); err != nil {
		return fmt.Errorf("credit %s: %w", to.Hex(), err)
	}
	if err := c.tx.PutAccount(ctx, dst); err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// MintTo issues amount new units of mint into account. authority must be the
// mint authority.
func (c *Custody) MintTo(ctx context.Context, mintAddr, authority, to common.Address, amount uint64) error {
	mint, err := c.mint(ctx, mintAddr)
	if err != nil {
		return err
	}
	if mint.Authority != authority {
		return fmt.Errorf("%w: %s is not the authority of %s", ErrUnauthorized, authority.Hex(), mintAddr.Hex())
	}
	dst, err := c.account(ctx, to)
	if err != nil {
		return err
	}
	if dst.Mint != mintAddr {
		return fmt.Errorf("%w: %s holds %s", ErrMintMismatch, to.Hex(), dst.Mint.Hex())
	}

	if mint.Supply, err = addAmount(mint.Supply, amount); err != nil {
		return fmt.Errorf("supply of %s: %w", mintAddr.Hex(), err)
	}
	if dst.Amount, err = addAmount(dst.Amount, amount); err != nil {
		return fmt.Errorf("credit %s: %w", to.Hex(), err)
	}
	if err := c.tx.PutMint(ctx, mint); err != nil {
		return fmt.Errorf("put mint: %w", err)
	}
	if err := c.tx.PutAccount(ctx, dst); err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

func (c *Custody) account(ctx context.Context, addr common.Address) (model.TokenAccount, error) {
	account, err := c.tx.Account(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return model.TokenAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr.Hex())
	}
	return account, err
}

func (c *Custody) mint(ctx context.Context, addr common.Address) (model.Mint, error) {
	mint, err := c.tx.Mint(ctx, addr)
	if errors.Is(err, ErrNotFound) {
		return model.Mint{}, fmt.Errorf("%w: %s", ErrMintNotFound, addr.Hex())
	}
	return mint, err
}

func addAmount(a, b uint64) (uint64, error) {
	sum := new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b))
	if !sum.IsUint64() {
		return 0, ErrBalanceOverflow
	}
	return sum.Uint64(), nil
}
