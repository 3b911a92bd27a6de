package state

import "context"

// Reader is implemented both by Backend (component A) and by *Layer
// (component B), so a Layer can be stacked on either — the parent of a
// child Layer is "a backend or another layer" (spec.md §4.1).
type Reader interface {
	GetRow(ctx context.Context, table, key string) (*Entry, error)
	GetRows(ctx context.Context, table string, keys []string) ([]*Entry, error)
	GetPrimaryKeys(ctx context.Context, table string, keyCond *Condition) ([]string, error)
	OpenTable(table string) (*Table, bool)
}

// DirtyRow is one (table, key) mutation plus the entry snapshot recorded
// for two-phase commit and for deterministic hashing (spec.md §3
// "DirtyRow log").
type DirtyRow struct {
	Table string
	Key   string
	Entry *Entry
}

// Backend is the durable, transactional KV store component A. It is
// accessed only asynchronously: AsyncPrepare ships a block's dirty rows,
// AsyncCommit/AsyncRollback finalize or discard them. Reader reads flow
// through the same backend handle as a convenience for Layer's base case.
type Backend interface {
	Reader

	// CreateTable registers a new table in the backend's catalog.
	CreateTable(name string, schema Schema) (*Table, error)

	// AsyncPrepare serializes number's dirty rows into the backend's
	// write-ahead area without making them visible to readers yet.
	AsyncPrepare(ctx context.Context, number uint64, rows []DirtyRow) error

	// AsyncCommit makes a previously prepared block's rows visible.
	// Idempotent on replay (spec.md §4.6).
	AsyncCommit(ctx context.Context, number uint64) error

	// AsyncRollback discards a previously prepared block's rows.
	AsyncRollback(ctx context.Context, number uint64) error
}
