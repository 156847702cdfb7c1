package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

var (
	// ErrNotFound is returned by readers for absent objects.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a transaction read state that another
	// transaction changed before it could commit. Nothing is applied.
	ErrConflict = errors.New("transaction conflict")
)

// Reader exposes the persisted objects.
type Reader interface {
	Pool(ctx context.Context, addr common.Address) (model.PoolConfig, error)
	Mint(ctx context.Context, addr common.Address) (model.Mint, error)
	Account(ctx context.Context, addr common.Address) (model.TokenAccount, error)
}

// Tx stages writes that become visible only if the whole transaction commits.
type Tx interface {
	Reader
	PutPool(ctx context.Context, pool model.PoolConfig) error
	PutMint(ctx context.Context, mint model.Mint) error
	PutAccount(ctx context.Context, account model.TokenAccount) error
}

// Store runs read-only and read-write transactions. Update commits every
// staged write of fn or none of them.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
}
