package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheLayerEvictsUnderBudget(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	_, err := backend.CreateTable("t_test", testSchema)
	require.NoError(t, err)

	// Each row's CapacityOfHashField is tiny; force a very small budget so
	// the worker must evict almost immediately.
	c := NewCacheLayer(backend, 1)
	defer c.Stop()

	for i := 0; i < 50; i++ {
		e := NewEntry(testSchema)
		require.NoError(t, e.SetField("name", "x"))
		require.NoError(t, e.SetField("amount", "1"))
		require.NoError(t, c.SetRow(ctx, "t_test", string(rune('a'+i%26)), e))
	}

	require.Eventually(t, func() bool {
		return c.Layer.Capacity() < 200
	}, 2*time.Second, 10*time.Millisecond, "worker should purge cold rows down toward the byte budget")
}

func TestCacheLayerPurgedRowRefetchesFromParent(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	_, err := backend.CreateTable("t_test", testSchema)
	require.NoError(t, err)

	e := NewEntry(testSchema)
	require.NoError(t, e.SetField("name", "persisted"))
	require.NoError(t, e.SetField("amount", "7"))

	base := NewLayer(backend, false)
	require.NoError(t, base.SetRow(ctx, "t_test", "k1", e))
	require.NoError(t, backend.AsyncPrepare(ctx, 1, base.DirtyRows()))
	require.NoError(t, backend.AsyncCommit(ctx, 1))

	c := NewCacheLayer(backend, DefaultMaxCapacity)
	defer c.Stop()

	got, err := c.GetRow(ctx, "t_test", "k1")
	require.NoError(t, err)
	require.NotNil(t, got)

	purged := NewEntry(testSchema)
	purged.status = StatusPurged
	require.NoError(t, c.Layer.SetRow(ctx, "t_test", "k1", purged))

	got, err = c.GetRow(ctx, "t_test", "k1")
	require.NoError(t, err)
	require.NotNil(t, got, "a PURGED local row must be re-fetchable from the parent")
	v, _ := got.GetField("name")
	require.Equal(t, "persisted", v)
}
