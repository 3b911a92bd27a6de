package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

func newDirtyLayer(t *testing.T, backend *state.MemoryBackend) *state.Layer {
	t.Helper()
	layer := state.NewLayer(backend, false)
	schema := state.Schema{KeyField: "key", ValueFields: []string{"key", "value"}}
	_, err := layer.CreateTable("t", schema)
	require.NoError(t, err)
	entry := state.NewEntry(schema)
	require.NoError(t, entry.SetField("value", "v"))
	require.NoError(t, layer.SetRow(context.Background(), "t", "k", entry))
	return layer
}

func TestCommitterPrepareThenCommit(t *testing.T) {
	backend := state.NewMemoryBackend()
	layer := newDirtyLayer(t, backend)

	c := NewCommitter(backend)
	ctx := context.Background()

	require.NoError(t, c.Prepare(ctx, 1, layer))
	require.NoError(t, c.Commit(ctx, 1))
	// idempotent on replay
	require.NoError(t, c.Commit(ctx, 1))
}

func TestCommitterCommitWithoutPrepareFails(t *testing.T) {
	backend := state.NewMemoryBackend()
	c := NewCommitter(backend)
	require.ErrorIs(t, c.Commit(context.Background(), 1), ErrNotPrepared)
}

func TestCommitterDoublePrepareFails(t *testing.T) {
	backend := state.NewMemoryBackend()
	layer := state.NewLayer(backend, false)
	c := NewCommitter(backend)
	ctx := context.Background()

	require.NoError(t, c.Prepare(ctx, 1, layer))
	require.ErrorIs(t, c.Prepare(ctx, 1, layer), ErrAlreadyPrepared)
}

func TestCommitterRollbackThenRePrepare(t *testing.T) {
	backend := state.NewMemoryBackend()
	layer := state.NewLayer(backend, false)
	c := NewCommitter(backend)
	ctx := context.Background()

	require.NoError(t, c.Prepare(ctx, 1, layer))
	require.NoError(t, c.Rollback(ctx, 1))
	require.NoError(t, c.Prepare(ctx, 1, layer))
}

func TestCommitterRollbackWithoutPrepareFails(t *testing.T) {
	backend := state.NewMemoryBackend()
	c := NewCommitter(backend)
	require.ErrorIs(t, c.Rollback(context.Background(), 1), ErrNotPrepared)
}
