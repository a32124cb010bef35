package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quy/internal/ledger"
	"quy/internal/log"
	"quy/internal/sheets"
)

// ErrNoEndpoint is returned by SyncNow when no spreadsheet endpoint is set.
var ErrNoEndpoint = errors.New("no sync endpoint configured")

// SyncStatus is the state shown next to the cloud indicator.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// SyncState is a point-in-time view of the sync indicator.
type SyncState struct {
	Status    SyncStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Revision  int64      `json:"revision"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LedgerPublisher hands a sync request to another process.
type LedgerPublisher interface {
	PublishLedgerSync(ctx context.Context, revision int64, endpoint string) error
}

// SyncServiceConfig holds configuration for the sync service
type SyncServiceConfig struct {
	// IdleAfter is how long a success stays visible before reverting to idle (default: 3s)
	IdleAfter time.Duration

	// Timeout bounds one push (default: 30s)
	Timeout time.Duration
}

// DefaultSyncServiceConfig returns sensible defaults
func DefaultSyncServiceConfig() SyncServiceConfig {
	return SyncServiceConfig{
		IdleAfter: 3 * time.Second,
		Timeout:   30 * time.Second,
	}
}

// SyncService mirrors ledger snapshots to the configured spreadsheet.
// Pushes are best effort: a failure only changes the displayed status and is
// never retried. When a publisher is set the push is delegated to the worker
// and success means the request was queued.
type SyncService struct {
	resolve   sheets.Resolver
	publisher LedgerPublisher
	config    SyncServiceConfig

	mu    sync.Mutex
	state SyncState
	gen   uint64
	idle  *time.Timer

	wg sync.WaitGroup
}

// NewSyncService creates a sync service. publisher may be nil.
func NewSyncService(resolve sheets.Resolver, publisher LedgerPublisher, config SyncServiceConfig) *SyncService {
	def := DefaultSyncServiceConfig()
	if config.IdleAfter <= 0 {
		config.IdleAfter = def.IdleAfter
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &SyncService{
		resolve:   resolve,
		publisher: publisher,
		config:    config,
		state:     SyncState{Status: SyncIdle},
	}
}

// State returns the current sync indicator.
func (s *SyncService) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Trigger starts a background push when the ledger is non-empty and an
// endpoint is configured. It is meant to be subscribed to the ledger store so
// every mutation produces exactly one push. It reports whether a push started.
func (s *SyncService) Trigger(snap ledger.Snapshot) bool {
	if len(snap.Transactions) == 0 || snap.Endpoint == "" {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
		defer cancel()
		_ = s.push(ctx, snap)
	}()
	return true
}

// SyncNow pushes snap synchronously. An empty ledger is pushed too, which
// clears the remote sheet.
func (s *SyncService) SyncNow(ctx context.Context, snap ledger.Snapshot) error {
	if snap.Endpoint == "" {
		return ErrNoEndpoint
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	return s.push(ctx, snap)
}

// Wait blocks until background pushes started by Trigger have finished.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

func (s *SyncService) push(ctx context.Context, snap ledger.Snapshot) error {
	s.setState(SyncSyncing, snap.Revision, nil)

	err := s.deliver(ctx, snap)
	if err != nil {
		log.For(log.ComponentSync).ErrorContext(ctx, "Ledger sync failed",
			"revision", snap.Revision,
			log.FieldRecords, len(snap.Transactions),
			log.FieldOperation, log.OpSync,
			log.FieldError, err)
		s.setState(SyncError, snap.Revision, err)
		return err
	}

	log.For(log.ComponentSync).InfoContext(ctx, "Ledger sync completed",
		"revision", snap.Revision,
		"records", len(snap.Transactions),
		"queued", s.publisher != nil)
	gen := s.setState(SyncSuccess, snap.Revision, nil)
	s.scheduleIdle(gen)
	return nil
}

func (s *SyncService) deliver(ctx context.Context, snap ledger.Snapshot) error {
	if s.publisher != nil {
		if err := s.publisher.PublishLedgerSync(ctx, snap.Revision, snap.Endpoint); err != nil {
			return fmt.Errorf("publish sync request: %w", err)
		}
		return nil
	}
	if s.resolve == nil {
		return errors.New("no sync target configured")
	}
	w, err := s.resolve(snap.Endpoint)
	if err != nil {
		return err
	}
	if err := w.WriteSnapshot(ctx, snap.Transactions); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// setState records a transition; the last writer wins.
func (s *SyncService) setState(status SyncStatus, revision int64, err error) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = SyncState{Status: status, Revision: revision, UpdatedAt: time.Now()}
	if err != nil {
		s.state.Error = err.Error()
	}
	return s.gen
}

// scheduleIdle reverts a success to idle unless another transition happened
// in the meantime.
func (s *SyncService) scheduleIdle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idle != nil {
		s.idle.Stop()
	}
	s.idle = time.AfterFunc(s.config.IdleAfter, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		s.gen++
		s.state = SyncState{Status: SyncIdle, Revision: s.state.Revision, UpdatedAt: time.Now()}
	})
}

// Stop cancels a pending revert to idle and waits for background pushes.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if s.idle != nil {
		s.idle.Stop()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
