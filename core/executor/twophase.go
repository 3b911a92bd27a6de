package executor

import (
	"context"
	"sync"

	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// Committer drives the two-phase commit protocol of spec.md §4.6: prepare
// serializes a block's dirty rows and forwards them to the backend's
// write-ahead area; commit/rollback finalize or discard. The executor
// guarantees prepare always precedes commit, and commit is idempotent on
// replay.
type Committer struct {
	backend state.Backend

	mu        sync.Mutex
	prepared  map[uint64]bool
	committed map[uint64]bool
}

// NewCommitter binds a Committer to backend.
func NewCommitter(backend state.Backend) *Committer {
	return &Committer{
		backend:   backend,
		prepared:  make(map[uint64]bool),
		committed: make(map[uint64]bool),
	}
}

// Prepare serializes layer's dirty rows for block number and forwards them
// to the backend via AsyncPrepare, without making them visible to readers
// yet. Fails with ErrAlreadyPrepared if number was already prepared and not
// since rolled back.
func (c *Committer) Prepare(ctx context.Context, number uint64, layer *state.Layer) error {
	c.mu.Lock()
	if c.prepared[number] {
		c.mu.Unlock()
		return ErrAlreadyPrepared
	}
	c.mu.Unlock()

	if err := c.backend.AsyncPrepare(ctx, number, layer.DirtyRows()); err != nil {
		return err
	}

	c.mu.Lock()
	c.prepared[number] = true
	c.mu.Unlock()
	return nil
}

// Commit finalizes a previously prepared block, making its rows visible.
// Committing an already-committed number is a no-op success: spec.md §4.6's
// "commit is idempotent on replay".
func (c *Committer) Commit(ctx context.Context, number uint64) error {
	c.mu.Lock()
	if c.committed[number] {
		c.mu.Unlock()
		return nil
	}
	if !c.prepared[number] {
		c.mu.Unlock()
		return ErrNotPrepared
	}
	c.mu.Unlock()

	if err := c.backend.AsyncCommit(ctx, number); err != nil {
		return err
	}

	c.mu.Lock()
	c.committed[number] = true
	c.mu.Unlock()
	return nil
}

// Rollback discards a previously prepared, not-yet-committed block.
func (c *Committer) Rollback(ctx context.Context, number uint64) error {
	c.mu.Lock()
	if !c.prepared[number] {
		c.mu.Unlock()
		return ErrNotPrepared
	}
	c.mu.Unlock()

	if err := c.backend.AsyncRollback(ctx, number); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.prepared, number)
	c.mu.Unlock()
	return nil
}
