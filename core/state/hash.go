package state

import (
	"context"
	"sort"

	"github.com/morebtcg/bcos-executor-sub001/common"
)

// deletedMarker is folded into the hash for DELETED rows in place of their
// (now-absent) field values, so a delete is distinguishable from a row that
// never held those bytes (spec.md §3 invariant).
var deletedMarker = []byte("\x00DELETED\x00")

// Hash computes the deterministic digest over this layer's dirty rows:
// ascending (table, key) byte order, field-by-field in schema order, using
// Keccak256 as the configured hash primitive (spec.md §4.1). PURGED rows
// are excluded; DELETED rows are included via deletedMarker.
func (l *Layer) Hash(ctx context.Context) (common.Hash, error) {
	rows := l.dirtyRows()
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Table != rows[j].Table {
			return rows[i].Table < rows[j].Table
		}
		return rows[i].Key < rows[j].Key
	})

	h := common.Keccak256Hasher()
	for _, row := range rows {
		if row.Entry != nil && row.Entry.status == StatusPurged {
			continue
		}
		h.Write([]byte(row.Table))
		h.Write([]byte(row.Key))
		if row.Entry == nil || row.Entry.status == StatusDeleted {
			h.Write(deletedMarker)
			continue
		}
		t, ok := l.OpenTable(row.Table)
		if !ok {
			// Table was dropped from the catalog mid-block; fall back to
			// the entry's own bound schema so hashing stays total.
			for _, f := range row.Entry.schema.ValueFields {
				v, _ := row.Entry.GetField(f)
				h.Write([]byte(v))
			}
			continue
		}
		for _, f := range t.Schema.ValueFields {
			v, _ := row.Entry.GetField(f)
			h.Write([]byte(v))
		}
	}
	return common.BytesToHash(h.Sum(nil)), nil
}
