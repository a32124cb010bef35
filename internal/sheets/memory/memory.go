package memory

import (
	"context"
	"sync"

	"quy/internal/core"
	ports "quy/internal/sheets"
)

// Store records snapshots instead of sending them anywhere. It backs local
// development and tests.
type Store struct {
	mu     sync.Mutex
	writes map[string][][]core.Transaction
	fail   error
}

func New() *Store {
	return &Store{writes: map[string][][]core.Transaction{}}
}

// FailWith makes every following write return err. A nil err clears it.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// Resolver accepts any non-empty endpoint and records writes under it.
func (s *Store) Resolver() ports.Resolver {
	return func(endpoint string) (ports.SnapshotWriter, error) {
		if endpoint == "" {
			return nil, ports.ErrUnsupportedEndpoint
		}
		return writer{store: s, endpoint: endpoint}, nil
	}
}

// Writes returns the snapshots written to endpoint, oldest first.
func (s *Store) Writes(endpoint string) [][]core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]core.Transaction(nil), s.writes[endpoint]...)
}

// Last returns the most recent snapshot written to endpoint.
func (s *Store) Last(endpoint string) ([]core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.writes[endpoint]
	if len(w) == 0 {
		return nil, false
	}
	return w[len(w)-1], true
}

type writer struct {
	store    *Store
	endpoint string
}

func (w writer) WriteSnapshot(_ context.Context, txs []core.Transaction) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if w.store.fail != nil {
		return w.store.fail
	}
	w.store.writes[w.endpoint] = append(w.store.writes[w.endpoint], append([]core.Transaction{}, txs...))
	return nil
}
