// Package ledger owns the in-memory ledger and its durable snapshot.
//
// The Store is built once at startup and injected wherever the ledger is
// read or changed. Every mutation rewrites the complete snapshot.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"quy/internal/core"
	"quy/internal/log"
	"quy/internal/storage"
)

// ErrCorruptSnapshot means a stored value could not be decoded. The data is
// left untouched so it can be repaired by hand.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Snapshot is what observers see after a ledger mutation.
type Snapshot struct {
	Transactions []core.Transaction
	Endpoint     string
	Revision     int64
}

type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	txs       []core.Transaction
	colors    core.ColorMap
	endpoint  string
	revision  int64
	newID     func() string
	observers []func(Snapshot)
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the UUID generator, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open loads the persisted state. Missing keys yield an empty ledger, the
// default colors and no sync endpoint; a malformed value is an error.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:    kv,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory state with what is currently persisted.
func (s *Store) Reload(ctx context.Context) error {
	txs, colors, endpoint, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = txs
	s.colors = colors
	s.endpoint = endpoint
	return nil
}

func (s *Store) load(ctx context.Context) ([]core.Transaction, core.ColorMap, string, error) {
	txs := []core.Transaction{}
	raw, ok, err := s.kv.Get(ctx, storage.KeyLedger)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read %s: %w", storage.KeyLedger, err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &txs); err != nil {
			return nil, nil, "", fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, storage.KeyLedger, err)
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
	}

	colors := core.DefaultColors()
	raw, ok, err = s.kv.Get(ctx, storage.KeyFundColors)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read %s: %w", storage.KeyFundColors, err)
	}
	if ok {
		var stored core.ColorMap
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, nil, "", fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, storage.KeyFundColors, err)
		}
		colors = stored.WithDefaults()
	}

	endpoint, _, err := s.kv.Get(ctx, storage.KeySyncEndpoint)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read %s: %w", storage.KeySyncEndpoint, err)
	}

	return txs, colors, endpoint, nil
}

// Ping checks that the durable store still answers reads.
func (s *Store) Ping(ctx context.Context) error {
	if _, _, err := s.kv.Get(ctx, storage.KeySyncEndpoint); err != nil {
		return fmt.Errorf("ping storage: %w", err)
	}
	return nil
}

// Subscribe registers fn to be called after every insert and every delete
// that removed a record. fn runs synchronously, outside the store lock.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Transactions returns a copy of the ledger, newest insertion first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction{}, s.txs...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

// Snapshot returns the current ledger together with the sync endpoint.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Transactions: append([]core.Transaction{}, s.txs...),
		Endpoint:     s.endpoint,
		Revision:     s.revision,
	}
}

// Insert validates d, assigns a fresh id and puts the record at the front.
// A rejected draft leaves the ledger untouched.
func (s *Store) Insert(ctx context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	tx := d.WithID(s.newID())
	for _, existing := range s.txs {
		if existing.ID == tx.ID {
			s.mu.Unlock()
			return core.Transaction{}, fmt.Errorf("duplicate id %s", tx.ID)
		}
	}
	snap, err := s.commitLocked(ctx, core.Prepend(s.txs, tx))
	s.mu.Unlock()
	if err != nil {
		return core.Transaction{}, err
	}

	log.For(log.ComponentLedger).InfoContext(ctx, "Transaction inserted",
		"id", tx.ID,
		"fund", tx.Fund,
		"type", tx.Kind,
		"amount", int64(tx.Amount),
		"date", tx.Date)
	s.notify(snap)
	return tx, nil
}

// Delete removes the record with the given id. An unknown id is not an
// error: it reports false and changes nothing. Callers must have obtained
// the user's confirmation before calling.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	next, found := core.Remove(s.txs, id)
	if !found {
		s.mu.Unlock()
		return false, nil
	}
	snap, err := s.commitLocked(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}

	log.For(log.ComponentLedger).InfoContext(ctx, "Transaction deleted", "id", id)
	s.notify(snap)
	return true, nil
}

// commitLocked persists next and swaps it in. On failure the previous ledger
// stays in place.
func (s *Store) commitLocked(ctx context.Context, next []core.Transaction) (Snapshot, error) {
	body, err := json.Marshal(next)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyLedger, string(body)); err != nil {
		return Snapshot{}, fmt.Errorf("persist ledger: %w", err)
	}
	s.txs = next
	s.revision++
	return s.snapshotLocked(), nil
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	observers := append([]func(Snapshot){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}

// Colors returns a copy of the fund color map.
func (s *Store) Colors() core.ColorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colors.WithDefaults()
}

// SetColor changes the display color of one fund.
func (s *Store) SetColor(ctx context.Context, f core.Fund, color string) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := core.ValidateColor(color); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.colors.WithDefaults()
	next[f] = color
	return s.saveColorsLocked(ctx, next)
}

// ResetColors restores the default palette.
func (s *Store) ResetColors(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveColorsLocked(ctx, core.DefaultColors())
}

func (s *Store) saveColorsLocked(ctx context.Context, next core.ColorMap) error {
	body, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode colors: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyFundColors, string(body)); err != nil {
		return fmt.Errorf("persist colors: %w", err)
	}
	s.colors = next
	return nil
}

// SyncEndpoint returns the configured spreadsheet endpoint, or "".
func (s *Store) SyncEndpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// SetSyncEndpoint stores the spreadsheet endpoint. An empty value disables sync.
func (s *Store) SetSyncEndpoint(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, storage.KeySyncEndpoint, endpoint); err != nil {
		return fmt.Errorf("persist sync endpoint: %w", err)
	}
	s.endpoint = endpoint
	return nil
}
