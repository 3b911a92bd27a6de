package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is a minimal in-process Backend (component A) used by
// tests and by the demo CLI. It implements the abstract durable backend
// contract without prescribing an on-disk format, per spec.md §1
// Non-goals.
type MemoryBackend struct {
	mu      sync.RWMutex
	tables  map[string]*Table
	rows    map[tableKey]*Entry
	pending map[uint64][]DirtyRow
}

// NewMemoryBackend returns an empty backend with the conventional system
// tables pre-created (spec.md §3).
func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{
		tables:  make(map[string]*Table),
		rows:    make(map[tableKey]*Entry),
		pending: make(map[uint64][]DirtyRow),
	}
	_, _ = b.CreateTable(TableDirectoryRoot, DirectorySchema)
	_, _ = b.CreateTable(TableDirectoryTables, DirectorySchema)
	_, _ = b.CreateTable(TableSysConfig, AccountSchema)
	_, _ = b.CreateTable(TableSysTables, DirectorySchema)
	return b
}

func (b *MemoryBackend) CreateTable(name string, schema Schema) (*Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tables[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	t := &Table{Name: name, Schema: schema.Clone()}
	b.tables[name] = t
	return t, nil
}

func (b *MemoryBackend) OpenTable(name string) (*Table, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tables[name]
	return t, ok
}

func (b *MemoryBackend) GetRow(_ context.Context, table, key string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.tables[table]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	e, ok := b.rows[tableKey{table, key}]
	if !ok {
		return nil, nil
	}
	return e, nil
}

func (b *MemoryBackend) GetRows(ctx context.Context, table string, keys []string) ([]*Entry, error) {
	out := make([]*Entry, len(keys))
	for i, k := range keys {
		e, err := b.GetRow(ctx, table, k)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (b *MemoryBackend) GetPrimaryKeys(_ context.Context, table string, keyCond *Condition) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.tables[table]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	var out []string
	for tk := range b.rows {
		if tk.table != table {
			continue
		}
		if keyCond != nil && !keyCond.MatchKeyOnly(tk.key) {
			continue
		}
		out = append(out, tk.key)
	}
	sort.Strings(out)
	return out, nil
}

// AsyncPrepare stages number's dirty rows. Implemented synchronously here;
// the "async" contract is honored by callers via context cancellation.
func (b *MemoryBackend) AsyncPrepare(_ context.Context, number uint64, rows []DirtyRow) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	staged := make([]DirtyRow, len(rows))
	copy(staged, rows)
	b.pending[number] = staged
	return nil
}

// AsyncCommit makes a previously prepared block's rows visible. Idempotent:
// committing a number with no pending rows (already committed) is a no-op.
func (b *MemoryBackend) AsyncCommit(_ context.Context, number uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows, ok := b.pending[number]
	if !ok {
		return nil
	}
	for _, row := range rows {
		tk := tableKey{row.Table, row.Key}
		if row.Entry != nil && row.Entry.status == StatusPurged {
			continue
		}
		if row.Entry != nil && row.Entry.status == StatusDeleted {
			delete(b.rows, tk)
			continue
		}
		b.rows[tk] = row.Entry
	}
	delete(b.pending, number)
	return nil
}

// AsyncRollback discards number's staged rows without touching committed
// state.
func (b *MemoryBackend) AsyncRollback(_ context.Context, number uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, number)
	return nil
}
