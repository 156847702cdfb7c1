package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

type kind uint8

const (
	kindPool kind = iota + 1
	kindMint
	kindAccount
)

type key struct {
	kind kind
	addr common.Address
}

type entry struct {
	version uint64
	value   interface{}
}

// MemoryStore keeps objects in memory. Transactions run optimistically
// against a private overlay and only see state committed before they started;
// commit checks that every key the transaction touched still has the version
// it observed. Views hold the read lock, so they never see half a commit.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[key]entry
	version uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[key]entry)}
}

// View runs fn against the committed state. Commits wait until fn returns.
func (s *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{store: s, locked: true, start: s.version, reads: make(map[key]uint64), writes: make(map[key]interface{})})
}

// Update runs fn against a staged overlay and commits it atomically.
func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	start := s.version
	s.mu.RUnlock()

	tx := &memTx{store: s, start: start, reads: make(map[key]uint64), writes: make(map[key]interface{})}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memTx) error {
	if len(tx.writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, observed := range tx.reads {
		if s.data[k].version != observed {
			return fmt.Errorf("%w: %s", ErrConflict, k.addr.Hex())
		}
	}
	s.version++
	for k, value := range tx.writes {
		s.data[k] = entry{version: s.version, value: value}
	}
	return nil
}

func (s *MemoryStore) get(k key) (entry, bool) {
	s.mu.RLock()
	e, ok := s.data[k]
	s.mu.RUnlock()
	return e, ok
}

// Snapshot copies the committed state, ordered by address.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	for _, e := range s.data {
		switch v := e.value.(type) {
		case model.PoolConfig:
			snap.Pools = append(snap.Pools, v)
		case model.Mint:
			snap.Mints = append(snap.Mints, v)
		case model.TokenAccount:
			snap.Accounts = append(snap.Accounts, v)
		}
	}
	sort.Slice(snap.Pools, func(i, j int) bool { return lessAddr(snap.Pools[i].Address, snap.Pools[j].Address) })
	sort.Slice(snap.Mints, func(i, j int) bool { return lessAddr(snap.Mints[i].Address, snap.Mints[j].Address) })
	sort.Slice(snap.Accounts, func(i, j int) bool { return lessAddr(snap.Accounts[i].Address, snap.Accounts[j].Address) })
	return snap
}

// Restore replaces the committed state with snap.
func (s *MemoryStore) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version++
	s.data = make(map[key]entry, len(snap.Pools)+len(snap.Mints)+len(snap.Accounts))
	for _, p := range snap.Pools {
		s.data[key{kindPool, p.Address}] = entry{version: s.version, value: p}
	}
	for _, m := range snap.Mints {
		s.data[key{kindMint, m.Address}] = entry{version: s.version, value: m}
	}
	for _, a := range snap.Accounts {
		s.data[key{kindAccount, a.Address}] = entry{version: s.version, value: a}
	}
}

func lessAddr(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}

type memTx struct {
	store  *MemoryStore
	start  uint64 // store version the transaction reads at
	locked bool   // caller holds the store's read lock
	reads  map[key]uint64
	writes map[key]interface{}
}

func (t *memTx) entry(k key) (entry, bool) {
	if t.locked {
		e, ok := t.store.data[k]
		return e, ok
	}
	return t.store.get(k)
}

// load returns the staged or committed value of k. A key committed after the
// transaction started is a conflict: mixing it with earlier reads would give
// a state that never existed.
func (t *memTx) load(k key) (interface{}, bool, error) {
	if v, ok := t.writes[k]; ok {
		return v, true, nil
	}
	e, ok := t.entry(k)
	if e.version > t.start {
		return nil, false, fmt.Errorf("%w: %s changed during transaction", ErrConflict, k.addr.Hex())
	}
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = e.version
	}
	return e.value, ok, nil
}

func (t *memTx) put(k key, value interface{}) {
	if _, seen := t.reads[k]; !seen {
		e, _ := t.entry(k)
		t.reads[k] = e.version
	}
	t.writes[k] = value
}

func (t *memTx) Pool(_ context.Context, addr common.Address) (model.PoolConfig, error) {
	v, ok, err := t.load(key{kindPool, addr})
	if err != nil {
		return model.PoolConfig{}, err
	}
	if !ok {
		return model.PoolConfig{}, fmt.Errorf("pool %s: %w", addr.Hex(), ErrNotFound)
	}
	return v.(model.PoolConfig), nil
}

func (t *memTx) Mint(_ context.Context, addr common.Address) (model.Mint, error) {
	v, ok, err := t.load(key{kindMint, addr})
	if err != nil {
		return model.Mint{}, err
	}
	if !ok {
		return model.Mint{}, fmt.Errorf("mint %s: %w", addr.Hex(), ErrNotFound)
	}
	return v.(model.Mint), nil
}

func (t *memTx) Account(_ context.Context, addr common.Address) (model.TokenAccount, error) {
	v, ok, err := t.load(key{kindAccount, addr})
	if err != nil {
		return model.TokenAccount{}, err
	}
	if !ok {
		return model.TokenAccount{}, fmt.Errorf("account %s: %w", addr.Hex(), ErrNotFound)
	}
	return v.(model.TokenAccount), nil
}

func (t *memTx) PutPool(_ context.Context, pool model.PoolConfig) error {
	t.put(key{kindPool, pool.Address}, pool)
	return nil
}

func (t *memTx) PutMint(_ context.Context, mint model.Mint) error {
	t.put(key{kindMint, mint.Address}, mint)
	return nil
}

func (t *memTx) PutAccount(_ context.Context, account model.TokenAccount) error {
	t.put(key{kindAccount, account.Address}, account)
	return nil
}
