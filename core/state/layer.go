package state

import (
	"context"
	"fmt"
	"sync"
)

type tableKey struct{ table, key string }

// record is one logged mutation or read-through cache in a Layer. Only
// non-cacheOnly records count as "dirty rows" for hashing and two-phase
// commit; cacheOnly records exist purely to save a parent round-trip.
type record struct {
	table     string
	key       string
	entry     *Entry // nil when missing is true
	missing   bool
	cacheOnly bool
}

// Layer is the State Storage Layer, component B of spec.md §4.1: an
// in-memory mutable overlay over a parent Reader, recording dirty rows with
// status flags, supporting savepoint/rollback, and computing a hash over
// dirty rows.
type Layer struct {
	mu     sync.RWMutex
	parent Reader

	tables map[string]*Table // tables created in this layer via CreateTable
	log    []record
	index  map[tableKey]int // latest record index per (table,key)

	cacheMissing bool
	issued       map[int]int  // savepoint token -> log length at issuance
	replayed     map[int]bool // tokens already rolled back to
	nextToken    int
}

// NewLayer creates a Layer stacked on parent (a Backend, or another Layer
// for nested/child branches). cacheMissing enables caching the
// NORMAL-empty sentinel for parent misses (spec.md §4.1).
func NewLayer(parent Reader, cacheMissing bool) *Layer {
	return &Layer{
		parent:       parent,
		tables:       make(map[string]*Table),
		index:        make(map[tableKey]int),
		cacheMissing: cacheMissing,
		issued:       make(map[int]int),
		replayed:     make(map[int]bool),
	}
}

// OpenTable resolves name against this layer's local creations, falling
// back to the parent. The sys_tables catalog (populated by CreateTable) is
// the durable, queryable record of every table that has ever existed;
// resolving an already-open Table still goes through the tables map/parent
// chain directly here since that is where the live Schema lives, not a
// second source of truth to keep in sync.
func (l *Layer) OpenTable(name string) (*Table, bool) {
	l.mu.RLock()
	t, ok := l.tables[name]
	l.mu.RUnlock()
	if ok {
		return t, true
	}
	if l.parent != nil {
		return l.parent.OpenTable(name)
	}
	return nil, false
}

// CreateTable fails with ErrTableExists if name is already visible anywhere
// in this stack. Every non-system table creation also gains a row in the
// sys_tables catalog (spec.md §3 "table catalog"), so the set of tables
// that have ever existed can be read back through the ordinary row API
// instead of only through the in-memory tables map.
func (l *Layer) CreateTable(name string, schema Schema) (*Table, error) {
	l.mu.Lock()
	if _, ok := l.tables[name]; ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	if l.parent != nil {
		if _, ok := l.parent.OpenTable(name); ok {
			l.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
		}
	}
	t := &Table{Name: name, Schema: schema.Clone()}
	l.tables[name] = t
	l.mu.Unlock()

	l.recordCatalogEntry(name)
	return t, nil
}

// isSystemTable reports whether name is one of the four conventional
// system tables (spec.md §3), which are bootstrapped directly by
// NewMemoryBackend rather than cataloging themselves.
func isSystemTable(name string) bool {
	switch name {
	case TableDirectoryRoot, TableDirectoryTables, TableSysConfig, TableSysTables:
		return true
	}
	return false
}

// recordCatalogEntry writes name into sys_tables if the catalog is present
// in this layer's stack. Catalog failures are not fatal to table creation:
// a layer built without NewMemoryBackend at its root (unit tests exercising
// Layer in isolation) simply has no catalog to populate.
func (l *Layer) recordCatalogEntry(name string) {
	if isSystemTable(name) || !l.tableExists(TableSysTables) {
		return
	}
	entry := NewEntry(DirectorySchema)
	_ = entry.SetField("type", "table")
	_ = entry.SetField("extra", name)
	_ = l.SetRow(context.Background(), TableSysTables, name, entry)
}

// CatalogNames returns every table name recorded in sys_tables, the table
// catalog named by spec.md §3. Tables created before the catalog existed in
// this layer's stack (see recordCatalogEntry) are not included.
func (l *Layer) CatalogNames(ctx context.Context) ([]string, error) {
	return l.GetPrimaryKeys(ctx, TableSysTables, nil)
}

func (l *Layer) tableExists(name string) bool {
	if _, ok := l.OpenTable(name); ok {
		return true
	}
	return false
}

// GetRow resolves the newest non-DELETED entry visible for (table, key),
// per the resolution order in spec.md §4.1.
func (l *Layer) GetRow(ctx context.Context, table, key string) (*Entry, error) {
	if !l.tableExists(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	l.mu.RLock()
	idx, ok := l.index[tableKey{table, key}]
	var rec record
	if ok {
		rec = l.log[idx]
	}
	l.mu.RUnlock()

	if ok {
		switch {
		case rec.missing:
			return nil, nil
		case rec.entry != nil && rec.entry.status == StatusDeleted:
			return nil, nil
		case rec.entry != nil && rec.entry.status == StatusPurged:
			// Fall through: purged means "forget local knowledge", not
			// "known deleted" — re-fetch from the parent below.
		case rec.entry != nil:
			return rec.entry, nil
		}
	}

	if l.parent == nil {
		if l.cacheMissing {
			l.cacheMiss(table, key)
		}
		return nil, nil
	}

	entry, err := l.parent.GetRow(ctx, table, key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		if l.cacheMissing {
			l.cacheMiss(table, key)
		}
		return nil, nil
	}

	cached := entry.Clone()
	cached.status = StatusNormal
	l.appendCache(table, key, cached)
	return cached, nil
}

func (l *Layer) cacheMiss(table, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tk := tableKey{table, key}
	l.index[tk] = len(l.log)
	l.log = append(l.log, record{table: table, key: key, missing: true, cacheOnly: true})
}

func (l *Layer) appendCache(table, key string, entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tk := tableKey{table, key}
	l.index[tk] = len(l.log)
	l.log = append(l.log, record{table: table, key: key, entry: entry, cacheOnly: true})
}

// GetRows is the batched form of GetRow; output ordering mirrors input.
func (l *Layer) GetRows(ctx context.Context, table string, keys []string) ([]*Entry, error) {
	if !l.tableExists(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	out := make([]*Entry, len(keys))
	for i, k := range keys {
		e, err := l.GetRow(ctx, table, k)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// SetRow writes a local copy with status MODIFIED (or DELETED/PURGED, if
// entry's status is already one of those) and appends it to the dirty log.
func (l *Layer) SetRow(ctx context.Context, table, key string, entry *Entry) error {
	if !l.tableExists(table) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	stored := entry.Clone()
	if stored.status != StatusDeleted && stored.status != StatusPurged {
		stored.status = StatusModified
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	tk := tableKey{table, key}
	l.index[tk] = len(l.log)
	l.log = append(l.log, record{table: table, key: key, entry: stored})
	return nil
}

// GetPrimaryKeys returns the union of keys visible from the parent and this
// layer, minus keys whose local status is DELETED or PURGED. If keyCond is
// provided, results are filtered by string comparison on the key only —
// full field-condition filtering is the caller's responsibility
// (spec.md §4.1).
func (l *Layer) GetPrimaryKeys(ctx context.Context, table string, keyCond *Condition) ([]string, error) {
	if !l.tableExists(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	seen := make(map[string]bool)
	var out []string

	if l.parent != nil {
		parentKeys, err := l.parent.GetPrimaryKeys(ctx, table, nil)
		if err != nil {
			return nil, err
		}
		for _, k := range parentKeys {
			seen[k] = true
		}
	}

	l.mu.RLock()
	local := make(map[string]*record, len(l.index))
	for tk, idx := range l.index {
		if tk.table != table {
			continue
		}
		r := l.log[idx]
		local[tk.key] = &r
	}
	l.mu.RUnlock()

	for k := range local {
		seen[k] = true
	}

	for k := range seen {
		if r, ok := local[k]; ok {
			if r.missing {
				continue
			}
			if r.entry != nil && (r.entry.status == StatusDeleted || r.entry.status == StatusPurged) {
				continue
			}
		}
		if keyCond != nil && !keyCond.MatchKeyOnly(k) {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

// Savepoint returns an opaque monotonically-increasing token capturing the
// current dirty-log length.
func (l *Layer) Savepoint() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	token := l.nextToken
	l.nextToken++
	l.issued[token] = len(l.log)
	return token
}

// Rollback truncates the dirty log to the token's captured length,
// restoring statuses accordingly. Tokens are single-use.
func (l *Layer) Rollback(token int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.replayed[token] {
		return ErrSavepointReplayed
	}
	length, ok := l.issued[token]
	if !ok {
		return fmt.Errorf("state: unknown savepoint token %d", token)
	}
	l.log = l.log[:length]
	l.index = make(map[tableKey]int, len(l.log))
	for i, r := range l.log {
		l.index[tableKey{r.table, r.key}] = i
	}
	// Any token issued at or after this point described dirty-log state
	// that no longer exists; guard against replay per spec.md §4.1.
	for tok, issuedAt := range l.issued {
		if issuedAt >= length {
			l.replayed[tok] = true
		}
	}
	return nil
}

// Capacity returns the current bytes retained in the layer: the sum of
// Entry.Capacity() for the latest non-purged, non-missing record per key.
func (l *Layer) Capacity() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for _, idx := range l.index {
		r := l.log[idx]
		if r.missing || r.entry == nil || r.entry.status == StatusPurged {
			continue
		}
		total += uint64(r.entry.Capacity())
	}
	return total
}

// dirtyRows returns the non-cacheOnly records in this layer, the true
// "DirtyRow log" of spec.md §3, deduplicated to the latest write per key
// and ordered by first-write insertion order.
func (l *Layer) dirtyRows() []DirtyRow {
	l.mu.RLock()
	defer l.mu.RUnlock()

	latest := make(map[tableKey]int)
	var order []tableKey
	for i, r := range l.log {
		if r.cacheOnly {
			continue
		}
		tk := tableKey{r.table, r.key}
		if _, ok := latest[tk]; !ok {
			order = append(order, tk)
		}
		latest[tk] = i
	}

	rows := make([]DirtyRow, 0, len(order))
	for _, tk := range order {
		r := l.log[latest[tk]]
		rows = append(rows, DirtyRow{Table: r.table, Key: r.key, Entry: r.entry})
	}
	return rows
}

// DirtyRows exposes the layer's dirty-row log, used by the executor for
// two-phase commit (spec.md §4.6).
func (l *Layer) DirtyRows() []DirtyRow { return l.dirtyRows() }

// Merge folds this layer's dirty rows into its parent layer, used when a
// child frame/transaction layer finishes successfully (spec.md §4.3). The
// parent must itself be a *Layer.
func (l *Layer) Merge(ctx context.Context, parent *Layer) error {
	for _, row := range l.dirtyRows() {
		if err := parent.SetRow(ctx, row.Table, row.Key, row.Entry); err != nil {
			return err
		}
	}
	for name, t := range l.tables {
		if _, ok := parent.tables[name]; !ok {
			parent.tables[name] = t
		}
	}
	return nil
}
