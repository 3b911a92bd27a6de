package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerSharedReaders(t *testing.T) {
	l := NewLedger()
	ok1, _ := l.Acquire(1, "k", false)
	ok2, _ := l.Acquire(2, "k", false)
	require.True(t, ok1)
	require.True(t, ok2)
}

func TestLedgerWriterExcludesReaders(t *testing.T) {
	l := NewLedger()
	ok, _ := l.Acquire(1, "k", false)
	require.True(t, ok)

	ok, conflict := l.Acquire(2, "k", true)
	require.False(t, ok)
	require.Equal(t, "k", conflict)
}

func TestLedgerWriterExcludesWriter(t *testing.T) {
	l := NewLedger()
	ok, _ := l.Acquire(1, "k", true)
	require.True(t, ok)

	ok, _ = l.Acquire(2, "k", true)
	require.False(t, ok)
}

func TestLedgerReleaseFreesKey(t *testing.T) {
	l := NewLedger()
	ok, _ := l.Acquire(1, "k", true)
	require.True(t, ok)

	l.Release(1)

	ok, _ = l.Acquire(2, "k", true)
	require.True(t, ok)
}

func TestLedgerAcquireAllRollsBackOnConflict(t *testing.T) {
	l := NewLedger()
	ok, _ := l.Acquire(1, "b", true)
	require.True(t, ok)

	ok, conflict := l.AcquireAll(2, []string{"a", "b", "c"}, true)
	require.False(t, ok)
	require.Equal(t, "b", conflict)

	// "a" must have been released by the rollback: a fresh acquisition of it
	// alone should now succeed.
	ok, _ = l.Acquire(3, "a", true)
	require.True(t, ok)
}

func TestLedgerAcquireAllAllOrNothingSucceeds(t *testing.T) {
	l := NewLedger()
	ok, _ := l.AcquireAll(1, []string{"x", "y", "z"}, true)
	require.True(t, ok)

	ok, _ = l.Acquire(2, "y", false)
	require.False(t, ok)
}

func TestLedgerSameTxCanReacquireItsOwnWriteLock(t *testing.T) {
	l := NewLedger()
	ok, _ := l.Acquire(1, "k", true)
	require.True(t, ok)

	ok, _ = l.Acquire(1, "k", true)
	require.True(t, ok)
}
