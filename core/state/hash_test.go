package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRow(t *testing.T, ctx context.Context, l *Layer, key, name, amount string) {
	t.Helper()
	e := NewEntry(testSchema)
	require.NoError(t, e.SetField("name", name))
	require.NoError(t, e.SetField("amount", amount))
	require.NoError(t, l.SetRow(ctx, "t_test", key, e))
}

func TestHashOrderIndependent(t *testing.T) {
	ctx := context.Background()

	_, l1 := newTestLayer(t)
	writeRow(t, ctx, l1, "a", "alice", "1")
	writeRow(t, ctx, l1, "b", "bob", "2")

	_, l2 := newTestLayer(t)
	writeRow(t, ctx, l2, "b", "bob", "2")
	writeRow(t, ctx, l2, "a", "alice", "1")

	h1, err := l1.Hash(ctx)
	require.NoError(t, err)
	h2, err := l2.Hash(ctx)
	require.NoError(t, err)
	require.Equal(t, h1, h2, "identical mutation sets in different orders must hash identically")
}

func TestHashExcludesPurged(t *testing.T) {
	ctx := context.Background()
	_, l := newTestLayer(t)
	writeRow(t, ctx, l, "a", "alice", "1")

	baseline, err := l.Hash(ctx)
	require.NoError(t, err)

	purged := NewEntry(testSchema)
	purged.status = StatusPurged
	require.NoError(t, l.SetRow(ctx, "t_test", "evicted-key", purged))

	afterPurge, err := l.Hash(ctx)
	require.NoError(t, err)
	require.Equal(t, baseline, afterPurge, "PURGED rows must not affect the hash")
}

func TestHashDistinguishesDelete(t *testing.T) {
	ctx := context.Background()
	_, l := newTestLayer(t)
	writeRow(t, ctx, l, "a", "alice", "1")
	h1, _ := l.Hash(ctx)

	require.NoError(t, l.SetRow(ctx, "t_test", "a", NewDeletedEntry(testSchema)))
	h2, _ := l.Hash(ctx)

	require.NotEqual(t, h1, h2)
}
