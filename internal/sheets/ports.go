package sheets

import (
	"context"
	"errors"

	"quy/internal/core"
)

// ErrUnsupportedEndpoint is returned by a Resolver when the configured
// endpoint cannot be served by its writer.
var ErrUnsupportedEndpoint = errors.New("unsupported sync endpoint")

// Ports for outbound adapters.
type (
	// SnapshotWriter mirrors the complete ledger to an external spreadsheet.
	// Every call replaces what the previous call wrote.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, txs []core.Transaction) error
	}

	// Resolver picks the writer for a user-configured endpoint.
	Resolver func(endpoint string) (SnapshotWriter, error)
)
