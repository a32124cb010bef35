package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quy/internal/core"
	"quy/internal/ledger"
	ports "quy/internal/sheets"
	"quy/internal/sheets/memory"
	"quy/internal/storage"
)

const endpoint = "https://script.google.com/macros/s/abc/exec"

type fakePublisher struct {
	mu        sync.Mutex
	revisions []int64
	err       error
}

func (f *fakePublisher) PublishLedgerSync(_ context.Context, revision int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revisions = append(f.revisions, revision)
	return nil
}

func snapshot(rev int64, n int) ledger.Snapshot {
	txs := make([]core.Transaction, n)
	for i := range txs {
		txs[i] = core.Transaction{ID: string(rune('a' + i)), Fund: core.FundUnion, Kind: core.Income, Amount: 1, Description: "x", Date: "2024-01-01"}
	}
	return ledger.Snapshot{Transactions: txs, Endpoint: endpoint, Revision: rev}
}

func fastConfig() SyncServiceConfig {
	return SyncServiceConfig{IdleAfter: 30 * time.Millisecond, Timeout: time.Second}
}

func TestDefaultSyncServiceConfig(t *testing.T) {
	cfg := DefaultSyncServiceConfig()
	assert.Equal(t, 3*time.Second, cfg.IdleAfter)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	svc := NewSyncService(nil, nil, SyncServiceConfig{})
	assert.Equal(t, cfg, svc.config)
	assert.Equal(t, SyncIdle, svc.State().Status)
}

func TestTrigger_SkipsEmptyLedgerOrEndpoint(t *testing.T) {
	mem := memory.New()
	svc := NewSyncService(mem.Resolver(), nil, fastConfig())

	assert.False(t, svc.Trigger(snapshot(1, 0)))
	noEndpoint := snapshot(2, 1)
	noEndpoint.Endpoint = ""
	assert.False(t, svc.Trigger(noEndpoint))
	svc.Wait()

	assert.Empty(t, mem.Writes(endpoint))
	assert.Equal(t, SyncIdle, svc.State().Status)
}

func TestTrigger_PushesThenRevertsToIdle(t *testing.T) {
	mem := memory.New()
	svc := NewSyncService(mem.Resolver(), nil, fastConfig())
	defer svc.Stop()

	require.True(t, svc.Trigger(snapshot(1, 2)))
	svc.Wait()

	last, ok := mem.Last(endpoint)
	require.True(t, ok)
	assert.Len(t, last, 2)
	assert.Equal(t, SyncSuccess, svc.State().Status)

	require.Eventually(t, func() bool { return svc.State().Status == SyncIdle },
		time.Second, 5*time.Millisecond)
}

func TestTrigger_OneCallPerMutation(t *testing.T) {
	mem := memory.New()
	svc := NewSyncService(mem.Resolver(), nil, fastConfig())
	defer svc.Stop()

	for rev := int64(1); rev <= 5; rev++ {
		require.True(t, svc.Trigger(snapshot(rev, int(rev))))
	}
	svc.Wait()
	assert.Len(t, mem.Writes(endpoint), 5)
}

func TestTrigger_FailureSetsError(t *testing.T) {
	mem := memory.New()
	mem.FailWith(errors.New("sheet unreachable"))
	svc := NewSyncService(mem.Resolver(), nil, fastConfig())
	defer svc.Stop()

	require.True(t, svc.Trigger(snapshot(4, 1)))
	svc.Wait()

	st := svc.State()
	assert.Equal(t, SyncError, st.Status)
	assert.Contains(t, st.Error, "sheet unreachable")
	assert.Equal(t, int64(4), st.Revision)

	// Errors stay visible; only success reverts.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, SyncError, svc.State().Status)
}

func TestSyncNow(t *testing.T) {
	mem := memory.New()
	svc := NewSyncService(mem.Resolver(), nil, fastConfig())
	defer svc.Stop()
	ctx := context.Background()

	noEndpoint := snapshot(1, 1)
	noEndpoint.Endpoint = ""
	assert.ErrorIs(t, svc.SyncNow(ctx, noEndpoint), ErrNoEndpoint)

	// An empty ledger still goes out when asked explicitly.
	require.NoError(t, svc.SyncNow(ctx, snapshot(2, 0)))
	last, ok := mem.Last(endpoint)
	require.True(t, ok)
	assert.Empty(t, last)
}

func TestSyncNow_UnsupportedEndpoint(t *testing.T) {
	resolve := func(string) (ports.SnapshotWriter, error) { return nil, ports.ErrUnsupportedEndpoint }
	svc := NewSyncService(resolve, nil, fastConfig())
	defer svc.Stop()

	err := svc.SyncNow(context.Background(), snapshot(1, 1))
	assert.ErrorIs(t, err, ports.ErrUnsupportedEndpoint)
	assert.Equal(t, SyncError, svc.State().Status)
}

func TestPublisherDispatch(t *testing.T) {
	pub := &fakePublisher{}
	mem := memory.New()
	svc := NewSyncService(mem.Resolver(), pub, fastConfig())
	defer svc.Stop()

	require.True(t, svc.Trigger(snapshot(7, 1)))
	svc.Wait()
	assert.Equal(t, []int64{7}, pub.revisions)
	assert.Empty(t, mem.Writes(endpoint), "queued pushes are written by the worker")
	assert.Equal(t, SyncSuccess, svc.State().Status)

	pub.err = errors.New("channel closed")
	require.Error(t, svc.SyncNow(context.Background(), snapshot(8, 1)))
	assert.Equal(t, SyncError, svc.State().Status)
}

func TestSubscribedToLedgerStore(t *testing.T) {
	ctx := context.Background()
	store, err := ledger.Open(ctx, storage.NewMemoryKV())
	require.NoError(t, err)

	mem := memory.New()
	svc := NewSyncService(mem.Resolver(), nil, fastConfig())
	defer svc.Stop()
	store.Subscribe(func(s ledger.Snapshot) { svc.Trigger(s) })

	draft := core.Draft{Fund: core.FundUnion, Kind: core.Income, Amount: 500000, Description: "Đoàn phí", Date: "2024-01-10"}

	// No endpoint yet: nothing is pushed.
	_, err = store.Insert(ctx, draft)
	require.NoError(t, err)
	svc.Wait()
	assert.Empty(t, mem.Writes(endpoint))

	require.NoError(t, store.SetSyncEndpoint(ctx, endpoint))
	tx, err := store.Insert(ctx, draft)
	require.NoError(t, err)
	svc.Wait()
	require.Len(t, mem.Writes(endpoint), 1)

	// Deleting down to one record still pushes; the ledger is non-empty.
	_, err = store.Delete(ctx, tx.ID)
	require.NoError(t, err)
	svc.Wait()
	writes := mem.Writes(endpoint)
	require.Len(t, writes, 2)
	assert.Len(t, writes[1], 1)
}
