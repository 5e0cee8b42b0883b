package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/sequence/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	record := func(id string) *domain.RunRecord {
		return &domain.RunRecord{
			ID:        id,
			Pipeline:  "contract",
			Status:    domain.RunResolved,
			Input:     "in",
			Result:    map[string]any{"count": 42},
			StartedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := record(runID)
		require.NoError(t, store.Save(ctx, rec), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec.ID, loaded.ID)
		assert.Equal(t, rec.Pipeline, loaded.Pipeline)
		assert.Equal(t, domain.RunResolved, loaded.Status)
		assert.True(t, rec.StartedAt.Equal(loaded.StartedAt))
		// JSON persistence may turn ints into float64, only check presence.
		assert.NotNil(t, loaded.Result)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		rec := record(runID)
		rec.Status = domain.RunRejected
		rec.Error = "boom"
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunRejected, loaded.Status)
		assert.Equal(t, "boom", loaded.Error)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Status = domain.RunPending

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.NotEqual(t, domain.RunPending, again.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record(runID)))
		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, record(id1))
		_ = store.Save(ctx, record(id2))

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
