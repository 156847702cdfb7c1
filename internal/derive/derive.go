package derive

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds is the maximum number of seeds accepted for one derivation.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed in bytes.
	MaxSeedLen = 32

	marker = "DerivedAddress"
)

var (
	ErrTooManySeeds       = errors.New("too many seeds")
	ErrSeedTooLong        = errors.New("seed too long")
	ErrOnCurve            = errors.New("derived digest is a curve point")
	ErrNoViableBump       = errors.New("no viable bump seed")
	ErrDerivationMismatch = errors.New("derivation mismatch")
)

// CreateAddress derives the address for program, seeds and an explicit bump.
// A bump whose digest is a valid secp256k1 x-coordinate is rejected so that
// no derived address can have a private key.
func CreateAddress(program common.Address, seeds [][]byte, bump uint8) (common.Address, error) {
	if len(seeds)+1 > MaxSeeds {
		return common.Address{}, ErrTooManySeeds
	}
	parts := make([][]byte, 0, len(seeds)+3)
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return common.Address{}, fmt.Errorf("seed %d: %w", i, ErrSeedTooLong)
		}
		parts = append(parts, seed)
	}
	parts = append(parts, []byte{bump}, program.Bytes(), []byte(marker))

	digest := crypto.Keccak256(parts...)
	if onCurve(digest) {
		return common.Address{}, ErrOnCurve
	}
	return common.BytesToAddress(digest[12:]), nil
}

// FindAddress returns the canonical derived address: the first bump, counting
// down from 255, that yields an off-curve digest.
func FindAddress(program common.Address, seeds ...[]byte) (common.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(program, seeds, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return common.Address{}, 0, err
		}
	}
	return common.Address{}, 0, ErrNoViableBump
}

// Verify checks that addr is the canonical derivation for the seeds and that
// bump is its canonical proof.
func Verify(program, addr common.Address, bump uint8, seeds ...[]byte) error {
	want, wantBump, err := FindAddress(program, seeds...)
	if err != nil {
		return err
	}
	if want != addr || wantBump != bump {
		return fmt.Errorf("%w: %s bump %d", ErrDerivationMismatch, addr.Hex(), bump)
	}
	return nil
}

func onCurve(digest []byte) bool {
	p := crypto.S256().Params().P
	x := new(big.Int).SetBytes(digest)
	if x.Cmp(p) >= 0 {
		return false
	}
	// y^2 = x^3 + 7 has a solution iff the right side is zero or a quadratic residue.
	rhs := new(big.Int).Exp(x, big.NewInt(3), p)
	rhs.Add(rhs, big.NewInt(7))
	rhs.Mod(rhs, p)
	if rhs.Sign() == 0 {
		return true
	}
	return big.Jacobi(rhs, p) == 1
}
