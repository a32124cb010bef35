// Package storage persists the ledger as whole-value snapshots under string
// keys. Nothing is diffed or patched: every write replaces the value.
package storage

import (
	"context"
	"sync"
)

// Keys used by the ledger store. They match the names the browser client
// used, so an exported localStorage dump can be loaded as-is.
const (
	KeyLedger       = "finance_data"
	KeyFundColors   = "fund_colors"
	KeySyncEndpoint = "google_sheet_url"
)

// KV is a durable string-keyed store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV keeps values in process memory only.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

var (
	_ KV = (*MemoryKV)(nil)
	_ KV = (*SQLiteKV)(nil)
)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
