package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot(id string) *domain.Snapshot {
	cc := domain.NewCommunicationContext(context.Background(), id, &domain.Request{
		Method: "GET",
		Path:   "/orders/42",
	})
	cc.Run.Index = 3
	cc.Run.Status = domain.StatusSuspended
	cc.Run.Trace = []domain.Identity{"auth", "match"}
	cc.Data.ResourceKey = "/orders/{id}"
	cc.Data.Params = map[string]string{"id": "42"}
	cc.Data.Items["foo"] = "bar"
	cc.Data.Items["count"] = 42
	return cc.Snapshot()
}

// RunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot(runID)

		err := store.Save(ctx, runID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, runID, loaded.ID)
		require.NotNil(t, loaded.Run)
		assert.Equal(t, 3, loaded.Run.Index)
		assert.Equal(t, domain.StatusSuspended, loaded.Run.Status)
		assert.Equal(t, []domain.Identity{"auth", "match"}, loaded.Run.Trace)
		require.NotNil(t, loaded.Request)
		assert.Equal(t, "/orders/42", loaded.Request.Path)
		require.NotNil(t, loaded.Data)
		assert.Equal(t, "/orders/{id}", loaded.Data.ResourceKey)
		assert.Equal(t, "42", loaded.Data.Params["id"])
		assert.Equal(t, "bar", loaded.Data.Items["foo"])
		// JSON backends turn ints into float64; existence is enough.
		assert.NotNil(t, loaded.Data.Items["count"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		snap := contractSnapshot(runID)
		snap.Run.Index = 5
		require.NoError(t, store.Save(ctx, runID, snap))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, 5, loaded.Run.Index)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, runID, contractSnapshot(runID))
		require.NoError(t, err)

		err = store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, id1, contractSnapshot(id1)))
		require.NoError(t, store.Save(ctx, id2, contractSnapshot(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
