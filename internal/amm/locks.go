package amm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type heldLock struct {
	holders int
	mu      sync.Mutex
}

// poolLocks serializes operations per pool. Entries exist only while held.
type poolLocks struct {
	mu sync.Mutex
	m  map[common.Address]*heldLock
}

func newPoolLocks() *poolLocks {
	return &poolLocks{m: make(map[common.Address]*heldLock)}
}

func (l *poolLocks) lock(pool common.Address) func() {
	l.mu.Lock()
	hl, ok := l.m[pool]
	if !ok {
		hl = &heldLock{}
		l.m[pool] = hl
	}
	hl.holders++
	l.mu.Unlock()

	hl.mu.Lock()
	return func() { l.unlock(pool, hl) }
}

func (l *poolLocks) unlock(pool common.Address, hl *heldLock) {
	l.mu.Lock()
	hl.holders--
	if hl.holders == 0 {
		delete(l.m, pool)
	}
	l.mu.Unlock()
	hl.mu.Unlock()
}

func (l *poolLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
