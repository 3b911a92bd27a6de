package executor

import "errors"

// DAG error kinds (spec.md §7 "DAG").
var (
	// ErrConflictFieldEscape fires when a task's actual execution touches an
	// account table outside its declared conflict set (spec.md §4.6 step 5).
	ErrConflictFieldEscape = errors.New("executor: CONFLICT_FIELD_ESCAPE")
	// ErrKeyLockCycle fires when a task can't acquire its declared key-lock
	// set within the retry budget: another concurrently running transaction
	// is holding a conflicting lock the static DAG failed to predict.
	ErrKeyLockCycle = errors.New("executor: KEY_LOCK_CYCLE")
)

// Two-phase commit error kinds (spec.md §4.6 "prepare always precedes
// commit").
var (
	ErrAlreadyPrepared = errors.New("executor: block already prepared")
	ErrNotPrepared     = errors.New("executor: commit/rollback without a matching prepare")
)
