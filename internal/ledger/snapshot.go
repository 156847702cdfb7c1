package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cpamm/internal/model"
)

// Snapshot is the serialized form of a MemoryStore.
type Snapshot struct {
	Pools     []model.PoolConfig   `json:"pools"`
	Mints     []model.Mint         `json:"mints"`
	Accounts  []model.TokenAccount `json:"accounts"`
	UpdatedAt string               `json:"updated_at"`
}

// SnapshotFile persists snapshots to disk.
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

func (f *SnapshotFile) Load() (Snapshot, bool, error) {
	stat, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return Snapshot{}, false, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}

func (f *SnapshotFile) Save(snap Snapshot) error {
	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// OpenMemoryStore returns a MemoryStore seeded from the snapshot file, if any.
func OpenMemoryStore(f *SnapshotFile) (*MemoryStore, error) {
	store := NewMemoryStore()
	snap, ok, err := f.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		store.Restore(snap)
	}
	return store, nil
}
