package worker

import (
	"context"
	"fmt"

	"quy/internal/amqp"
	"quy/internal/ledger"
	"quy/internal/log"
	"quy/internal/services"
)

// SyncWorker mirrors the shared ledger database to the spreadsheet on
// behalf of the web process.
type SyncWorker struct {
	store *ledger.Store
	sync  *services.SyncService
}

// NewSyncWorker expects sync to write directly, without a publisher.
func NewSyncWorker(store *ledger.Store, sync *services.SyncService) *SyncWorker {
	return &SyncWorker{store: store, sync: sync}
}

// HandleSyncMessage reloads the ledger and pushes it. The message only says
// that something changed; the database is the source of truth, so an old
// message still sends the newest ledger.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	log.For(log.ComponentWorker).InfoContext(ctx, "Processing sync message",
		"revision", msg.Revision,
		"published_at", msg.Timestamp)

	if err := w.store.Reload(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}

	snap := w.store.Snapshot()
	if snap.Endpoint == "" {
		// Cleared after the message was queued: sync is now disabled.
		log.For(log.ComponentWorker).InfoContext(ctx, "Sync endpoint cleared, message dropped",
			"revision", msg.Revision)
		return nil
	}
	if err := w.sync.SyncNow(ctx, snap); err != nil {
		return fmt.Errorf("push ledger: %w", err)
	}
	return nil
}

// StartupSync pushes the current ledger once, covering changes made while
// the worker was down. It is skipped for an empty ledger or endpoint.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if err := w.store.Reload(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	snap := w.store.Snapshot()
	if len(snap.Transactions) == 0 || snap.Endpoint == "" {
		log.For(log.ComponentWorker).InfoContext(ctx, "Startup sync skipped",
			"records", len(snap.Transactions),
			"has_endpoint", snap.Endpoint != "")
		return nil
	}
	return w.sync.SyncNow(ctx, snap)
}
