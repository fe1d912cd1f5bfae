package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sluice/pkg/adapters/sqlite"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

func newStore(t *testing.T, path string) *sqlite.Store {
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	store := newStore(t, filepath.Join(t.TempDir(), "runs.db"))
	ports.RunStoreContract(t, store)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	cc := domain.NewCommunicationContext(ctx, "durable", &domain.Request{Path: "/x"})
	cc.Run.Index = 4
	require.NoError(t, first.Save(ctx, "durable", cc.Snapshot()))
	require.NoError(t, first.Close())

	second := newStore(t, path)
	snap, err := second.Load(ctx, "durable")
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Run.Index)
	assert.Equal(t, "/x", snap.Request.Path)
}
