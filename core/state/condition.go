package state

import "strconv"

// MatchKeyOnly reports whether key itself satisfies every triple in c by
// plain string/byte comparison, ignoring field names — the filtering
// GetPrimaryKeys performs when handed a condition (spec.md §4.1: "full
// field-condition filtering is the caller's responsibility").
func (c *Condition) MatchKeyOnly(key string) bool {
	for _, tr := range c.Triples {
		if !matchTriple(key, tr.Comparator, tr.Literal) {
			return false
		}
	}
	return true
}

// Match reports whether entry satisfies every triple in c (AND semantics),
// spec.md §3 "Condition". Integer comparators coerce to signed 64-bit when
// both sides parse as integers; otherwise the comparison falls back to byte
// comparison.
func (c *Condition) Match(key string, e *Entry) bool {
	for _, tr := range c.Triples {
		var actual string
		if tr.Field == "" {
			actual = key
		} else if v, ok := e.GetField(tr.Field); ok {
			actual = v
		} else {
			return false
		}
		if !matchTriple(actual, tr.Comparator, tr.Literal) {
			return false
		}
	}
	return true
}

func matchTriple(actual string, cmp Comparator, literal string) bool {
	if ai, aerr := strconv.ParseInt(actual, 10, 64); aerr == nil {
		if bi, berr := strconv.ParseInt(literal, 10, 64); berr == nil {
			return compareOrdered(ai, bi, cmp)
		}
	}
	return compareOrdered(compareStrings(actual, literal), 0, cmp)
}

func compareStrings(a, b string) int64 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(a, b int64, cmp Comparator) bool {
	switch cmp {
	case CompEQ:
		return a == b
	case CompNE:
		return a != b
	case CompGT:
		return a > b
	case CompGE:
		return a >= b
	case CompLT:
		return a < b
	case CompLE:
		return a <= b
	default:
		return false
	}
}

// KeyOnly reports whether every triple in c references the table's key
// field, meaning the condition can be fully resolved by GetPrimaryKeys'
// string-comparison filtering alone.
func (c *Condition) KeyOnly(keyField string) bool {
	for _, tr := range c.Triples {
		if tr.Field != keyField {
			return false
		}
	}
	return true
}

// EQLiterals returns the set of literal values constrained by an EQ triple
// on keyField, used by TableService's update pre-check to require that
// each named key already has a row (spec.md §4.4).
func (c *Condition) EQLiterals(keyField string) []string {
	var out []string
	for _, tr := range c.Triples {
		if tr.Field == keyField && tr.Comparator == CompEQ {
			out = append(out, tr.Literal)
		}
	}
	return out
}
