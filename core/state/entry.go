package state

import "fmt"

// Status is the lifecycle flag carried by every Entry (spec.md §3).
type Status int

const (
	StatusNormal Status = iota
	StatusModified
	StatusDeleted
	StatusPurged
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "NORMAL"
	case StatusModified:
		return "MODIFIED"
	case StatusDeleted:
		return "DELETED"
	case StatusPurged:
		return "PURGED"
	default:
		return "UNKNOWN"
	}
}

// Key and field value length limits; SetField enforces the field limit
// (spec.md's original_source supplement #2). core/precompiled declares its
// own constants of the same values.
const (
	UserTableKeyValueMaxLength   = 255
	UserTableFieldValueMaxLength = 16 * 1024
)

// Entry is an ordered mapping of field-name to field-value bound to a
// table's schema, plus a lifecycle Status. Once inserted into a Layer,
// further mutations must go through a fresh Entry (copy-on-write) per
// spec.md §3 "Lifecycles".
type Entry struct {
	schema Schema
	fields map[string]string
	status Status
}

// NewEntry creates an entry bound to schema, all fields unset.
func NewEntry(schema Schema) *Entry {
	return &Entry{schema: schema.Clone(), fields: make(map[string]string, len(schema.ValueFields)), status: StatusNormal}
}

// NewDeletedEntry creates a tombstone entry for the given schema, used by
// Table.Remove (spec.md §4.4).
func NewDeletedEntry(schema Schema) *Entry {
	e := NewEntry(schema)
	e.status = StatusDeleted
	return e
}

// Schema returns the entry's bound schema.
func (e *Entry) Schema() Schema { return e.schema }

// SetField validates and stores value under field name. Validation happens
// here, not only at setRow/insert time (SPEC_FULL supplement #2).
func (e *Entry) SetField(name, value string) error {
	if !e.schema.HasField(name) {
		return fmt.Errorf("state: field %q not in schema", name)
	}
	if len(value) > UserTableFieldValueMaxLength {
		return ErrFieldTooLong
	}
	e.fields[name] = value
	if e.status == StatusNormal {
		e.status = StatusModified
	}
	return nil
}

// GetField returns the value for name and whether it was set.
func (e *Entry) GetField(name string) (string, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Fields returns a defensive copy of the field map.
func (e *Entry) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

func (e *Entry) Status() Status     { return e.status }
func (e *Entry) SetStatus(s Status) { e.status = s }

// Clone returns a copy-on-write duplicate of e, used whenever an entry
// already committed to a layer needs further mutation.
func (e *Entry) Clone() *Entry {
	cp := &Entry{schema: e.schema.Clone(), fields: make(map[string]string, len(e.fields)), status: e.status}
	for k, v := range e.fields {
		cp.fields[k] = v
	}
	return cp
}

// CapacityOfHashField is the sum of lengths of fields that participate in
// the table hash: all value fields, excluding the key (which is embedded in
// the (table,key) tuple, not in the field map) — spec.md §3.
func (e *Entry) CapacityOfHashField() int {
	total := 0
	for _, f := range e.schema.ValueFields {
		total += len(e.fields[f])
	}
	return total
}

// Capacity is CapacityOfHashField plus a fixed per-row bookkeeping
// allowance, used by the LRU Cache Layer's byte-budget accounting
// (spec.md §4.2).
func (e *Entry) Capacity() int {
	const rowOverhead = 64
	return e.CapacityOfHashField() + rowOverhead
}
