package derive

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

var (
	poolPrefix    = []byte("config")
	lpMintPrefix  = []byte("lp")
	accountPrefix = []byte("account")
)

// SortPair orders two asset identifiers by their bytes.
func SortPair(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		return b, a
	}
	return a, b
}

// PoolSeeds returns the seeds of the pool configuration for an unordered pair.
func PoolSeeds(a, b common.Address) [][]byte {
	lo, hi := SortPair(a, b)
	return [][]byte{poolPrefix, lo.Bytes(), hi.Bytes()}
}

// LPMintSeeds returns the seeds of the pool's LP unit mint.
func LPMintSeeds(pool common.Address) [][]byte {
	return [][]byte{lpMintPrefix, pool.Bytes()}
}

// PoolAddress derives the pool configuration address for a pair.
func PoolAddress(program, a, b common.Address) (common.Address, uint8, error) {
	return FindAddress(program, PoolSeeds(a, b)...)
}

// LPMintAddress derives the LP mint address of a pool.
func LPMintAddress(program, pool common.Address) (common.Address, uint8, error) {
	return FindAddress(program, LPMintSeeds(pool)...)
}

// AssociatedAccount derives the token account that owner holds for mint.
func AssociatedAccount(program, owner, mint common.Address) (common.Address, error) {
	addr, _, err := FindAddress(program, accountPrefix, owner.Bytes(), mint.Bytes())
	return addr, err
}
