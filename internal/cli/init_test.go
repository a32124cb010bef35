package cli

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quy/internal/config"
	"quy/internal/core"
	"quy/internal/log"
	ports "quy/internal/sheets"
	"quy/internal/storage"
)

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func TestOpenKV(t *testing.T) {
	ctx := context.Background()

	kv, closeKV, err := OpenKV(&config.Config{DataBackend: "memory"})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, storage.KeyLedger, "[]"))
	require.NoError(t, closeKV())

	path := filepath.Join(t.TempDir(), "nested", "quy.db")
	kv, closeKV, err = OpenKV(&config.Config{DataBackend: "sqlite", SQLiteDBPath: path})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, storage.KeySyncEndpoint, "x"))
	require.NoError(t, closeKV())

	kv, closeKV, err = OpenKV(&config.Config{DataBackend: "sqlite", SQLiteDBPath: path})
	require.NoError(t, err)
	defer closeKV()
	v, ok, err := kv.Get(ctx, storage.KeySyncEndpoint)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, _, err = OpenKV(&config.Config{DataBackend: "postgres"})
	assert.Error(t, err)
}

func TestMustOpenLedger(t *testing.T) {
	store, closeKV := MustOpenLedger(context.Background(), quietLogger(), &config.Config{DataBackend: "memory"})
	defer closeKV()
	assert.Equal(t, 0, store.Len())
}

func TestNewResolver(t *testing.T) {
	ctx := context.Background()

	resolve, err := NewResolver(ctx, &config.Config{SyncTarget: "webhook", SyncTimeout: time.Second})
	require.NoError(t, err)
	_, err = resolve("https://example.com/hook")
	assert.ErrorIs(t, err, ports.ErrUnsupportedEndpoint)
	_, err = resolve("https://script.google.com/macros/s/abc/exec")
	assert.NoError(t, err)

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err = NewResolver(ctx, &config.Config{SyncTarget: "sheets", GoogleSheetName: "Sheet1"})
	assert.Error(t, err, "sheets target without credentials")

	_, err = NewResolver(ctx, &config.Config{SyncTarget: "ftp"})
	assert.Error(t, err)
}

func TestNewAnalyzer_WithoutKey(t *testing.T) {
	assert.Nil(t, NewAnalyzer(context.Background(), quietLogger(), &config.Config{}))
}

func TestNewInsightService(t *testing.T) {
	for _, ttl := range []time.Duration{0, time.Minute} {
		svc, stop := NewInsightService(context.Background(), quietLogger(), &config.Config{InsightTimeout: time.Second, InsightCacheTTL: ttl})
		require.NotNil(t, svc)
		require.NotNil(t, stop)
		r, ran := svc.Run(context.Background(), []core.Transaction{{ID: "1", Fund: core.FundUnion, Kind: core.Income, Amount: 1, Description: "x", Date: "2024-01-10"}})
		assert.True(t, ran)
		assert.True(t, r.Failed, "no API key means the fallback report")
		stop()
	}
}

func TestGracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")

	var cleanupCtx context.Context
	task := GracefulShutdown(ctx, quietLogger(), time.Second, func(c context.Context) error {
		cleanupCtx = c
		return boom
	})

	done := make(chan error, 1)
	go func() { done <- task() }()

	select {
	case <-done:
		t.Fatal("cleanup must wait for the context")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
		require.NotNil(t, cleanupCtx)
		_, hasDeadline := cleanupCtx.Deadline()
		assert.True(t, hasDeadline)
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}
}
