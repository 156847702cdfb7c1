package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	PoolInitialized = "PoolInitialized"
	Deposit         = "Deposit"
)

const poolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "assetX", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "assetY", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "authority", "type": "address"},
      {"indexed": false, "internalType": "uint16", "name": "feeBps", "type": "uint16"},
      {"indexed": false, "internalType": "address", "name": "lpMint", "type": "address"}
    ],
    "name": "PoolInitialized",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pool", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "depositor", "type": "address"},
      {"indexed": false, "internalType": "uint64", "name": "amountX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "amountY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "lpMinted", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveX", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "reserveY", "type": "uint64"},
      {"indexed": false, "internalType": "uint64", "name": "lpSupply", "type": "uint64"}
    ],
    "name": "Deposit",
    "type": "event"
  }
]`

var (
	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

// PoolABI returns the parsed pool event ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}
