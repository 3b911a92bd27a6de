package state

// Table is a named collection of entries addressed by a primary key
// string, bound to a fixed Schema (spec.md §3).
type Table struct {
	Name   string
	Schema Schema
}

// Comparator is one of the six condition operators (spec.md §3
// "Condition").
type Comparator int

const (
	CompEQ Comparator = iota
	CompNE
	CompGT
	CompGE
	CompLT
	CompLE
)

// Triple is a single (field, comparator, literal) clause of a Condition.
type Triple struct {
	Field      string
	Comparator Comparator
	Literal    string
}

// Condition is an ordered AND of Triples plus an optional (offset, limit)
// page window (spec.md §3).
type Condition struct {
	Triples []Triple
	Offset  int
	Limit   int // 0 means unbounded
}

// NewCondition returns an empty condition ready for And.
func NewCondition() *Condition { return &Condition{} }

// And appends a triple, matching the builder style CRUD callers use when
// assembling conditions field by field.
func (c *Condition) And(field string, cmp Comparator, literal string) *Condition {
	c.Triples = append(c.Triples, Triple{Field: field, Comparator: cmp, Literal: literal})
	return c
}

// Page sets the optional (offset, limit) window.
func (c *Condition) Page(offset, limit int) *Condition {
	c.Offset, c.Limit = offset, limit
	return c
}
