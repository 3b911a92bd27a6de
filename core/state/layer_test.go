package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

var testSchema = Schema{KeyField: "id", ValueFields: []string{"name", "amount"}}

func newTestLayer(t *testing.T) (*MemoryBackend, *Layer) {
	t.Helper()
	backend := NewMemoryBackend()
	_, err := backend.CreateTable("t_test", testSchema)
	require.NoError(t, err)
	layer := NewLayer(backend, false)
	return backend, layer
}

func TestSavepointRollback(t *testing.T) {
	ctx := context.Background()
	_, layer := newTestLayer(t)

	e1 := NewEntry(testSchema)
	require.NoError(t, e1.SetField("name", "alice"))
	require.NoError(t, e1.SetField("amount", "100"))
	require.NoError(t, layer.SetRow(ctx, "t_test", "k1", e1))

	sp := layer.Savepoint()

	e2 := NewEntry(testSchema)
	require.NoError(t, e2.SetField("name", "alice"))
	require.NoError(t, e2.SetField("amount", "999"))
	require.NoError(t, layer.SetRow(ctx, "t_test", "k1", e2))

	got, err := layer.GetRow(ctx, "t_test", "k1")
	require.NoError(t, err)
	v, _ := got.GetField("amount")
	require.Equal(t, "999", v)

	require.NoError(t, layer.Rollback(sp))

	got, err = layer.GetRow(ctx, "t_test", "k1")
	require.NoError(t, err)
	v, _ = got.GetField("amount")
	require.Equal(t, "100", v, "rollback must restore the value visible immediately before the savepoint")

	require.ErrorIs(t, layer.Rollback(sp), ErrSavepointReplayed)
}

func TestGetRowNeverWrittenReturnsNone(t *testing.T) {
	ctx := context.Background()
	_, layer := newTestLayer(t)
	e, err := layer.GetRow(ctx, "t_test", "missing")
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestGetRowUnknownTable(t *testing.T) {
	ctx := context.Background()
	_, layer := newTestLayer(t)
	_, err := layer.GetRow(ctx, "nope", "k1")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestDeletedRowNotReturned(t *testing.T) {
	ctx := context.Background()
	_, layer := newTestLayer(t)

	e := NewEntry(testSchema)
	require.NoError(t, e.SetField("name", "bob"))
	require.NoError(t, layer.SetRow(ctx, "t_test", "k1", e))

	del := NewDeletedEntry(testSchema)
	require.NoError(t, layer.SetRow(ctx, "t_test", "k1", del))

	got, err := layer.GetRow(ctx, "t_test", "k1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestReadThroughCachesFromParent(t *testing.T) {
	ctx := context.Background()
	backend, parent := newTestLayer(t)

	e := NewEntry(testSchema)
	require.NoError(t, e.SetField("name", "carol"))
	require.NoError(t, parent.SetRow(ctx, "t_test", "k1", e))
	require.NoError(t, backend.AsyncPrepare(ctx, 1, parent.DirtyRows()))
	require.NoError(t, backend.AsyncCommit(ctx, 1))

	child := NewLayer(backend, false)
	got, err := child.GetRow(ctx, "t_test", "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, StatusNormal, got.Status(), "read-through entries are cached with status NORMAL")
}

func TestCreateTableExists(t *testing.T) {
	_, layer := newTestLayer(t)
	_, err := layer.CreateTable("t_test", testSchema)
	require.ErrorIs(t, err, ErrTableExists)
}

func TestCreateTableRecordsCatalogEntry(t *testing.T) {
	ctx := context.Background()
	_, layer := newTestLayer(t)

	_, err := layer.CreateTable("t_catalog", testSchema)
	require.NoError(t, err)

	names, err := layer.CatalogNames(ctx)
	require.NoError(t, err)
	require.Contains(t, names, "t_catalog")
	require.NotContains(t, names, "t_test", "tables created straight on the backend, bypassing Layer.CreateTable, are not retroactively cataloged")

	row, err := layer.GetRow(ctx, TableSysTables, "t_catalog")
	require.NoError(t, err)
	require.NotNil(t, row)
	kind, _ := row.GetField("type")
	require.Equal(t, "table", kind)
}

func TestGetPrimaryKeysExcludesDeleted(t *testing.T) {
	ctx := context.Background()
	_, layer := newTestLayer(t)

	for _, k := range []string{"a", "b", "c"} {
		e := NewEntry(testSchema)
		require.NoError(t, e.SetField("name", k))
		require.NoError(t, layer.SetRow(ctx, "t_test", k, e))
	}
	require.NoError(t, layer.SetRow(ctx, "t_test", "b", NewDeletedEntry(testSchema)))

	keys, err := layer.GetPrimaryKeys(ctx, "t_test", nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "c"}, keys)
}
