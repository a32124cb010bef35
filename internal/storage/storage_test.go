package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, KeyLedger)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must not have a ledger")

	require.NoError(t, kv.Set(ctx, KeyLedger, `[]`))
	require.NoError(t, kv.Set(ctx, KeyLedger, `[{"id":"1"}]`))
	v, ok, err := kv.Get(ctx, KeyLedger)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	// An empty string is a stored value, not an absent one.
	require.NoError(t, kv.Set(ctx, KeySyncEndpoint, ""))
	v, ok, err = kv.Get(ctx, KeySyncEndpoint)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "quy.db")
	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	exerciseKV(t, kv)
	require.NoError(t, kv.Close())

	// Reopening runs migrations again without error and keeps data.
	kv, err = NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()
	v, ok, err := kv.Get(context.Background(), KeyLedger)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	dsn := DSN(filepath.Join(t.TempDir(), "quy.db"))
	v1, err := RunMigrations(dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v1)

	v2, err := RunMigrations(dsn)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}
