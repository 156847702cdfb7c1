package amm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

// poolCache remembers pool configurations whose derived addresses were
// already checked. Configurations are immutable once written.
type poolCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolConfig
}

func newPoolCache() *poolCache {
	return &poolCache{data: make(map[common.Address]model.PoolConfig)}
}

func (c *poolCache) Has(pool model.PoolConfig) bool {
	c.mu.RLock()
	cached, ok := c.data[pool.Address]
	c.mu.RUnlock()
	return ok && cached == pool
}

func (c *poolCache) Get(addr common.Address) (model.PoolConfig, bool) {
	c.mu.RLock()
	pool, ok := c.data[addr]
	c.mu.RUnlock()
	return pool, ok
}

func (c *poolCache) Set(pool model.PoolConfig) {
	c.mu.Lock()
	c.data[pool.Address] = pool
	c.mu.Unlock()
}
