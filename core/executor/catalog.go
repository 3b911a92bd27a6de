package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

// ConflictKind is the shape of a catalog entry's declared conflict field
// (spec.md §4.6 step 1).
type ConflictKind int

const (
	// ConflictAll forces serial scheduling of the transaction against every
	// other transaction in the batch.
	ConflictAll ConflictKind = iota
	// ConflictLen contributes the length of an argument value.
	ConflictLen
	// ConflictEnv contributes an ExecutionMessage envelope field (from, to,
	// origin).
	ConflictEnv
	// ConflictVar contributes an argument's decoded value.
	ConflictVar
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictAll:
		return "ALL"
	case ConflictLen:
		return "LEN"
	case ConflictEnv:
		return "ENV"
	case ConflictVar:
		return "VAR"
	default:
		return "UNKNOWN"
	}
}

// ConflictField is one entry of a (contract, selector) catalog record: which
// argument or envelope field decides this transaction's conflict
// participation, and how to read it.
type ConflictField struct {
	Kind ConflictKind
	// EnvField names the field ConflictEnv reads: "from", "to", or "origin".
	EnvField string
	// ArgIndex indexes into Transaction.Args for ConflictVar/ConflictLen.
	ArgIndex int
}

// Selector identifies a catalog entry: the called contract's identity and
// the 4-byte function selector (spec.md §6).
type Selector struct {
	Contract common.Identity
	Method   [4]byte
}

// Catalog maps (contract, selector) to its declared conflict fields
// (spec.md §4.6 step 1).
type Catalog struct {
	mu     sync.RWMutex
	fields map[Selector][]ConflictField
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{fields: make(map[Selector][]ConflictField)}
}

// Declare registers the conflict fields for sel, replacing any prior
// declaration.
func (c *Catalog) Declare(sel Selector, fields ...ConflictField) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields[sel] = fields
}

// Lookup returns sel's declared conflict fields.
func (c *Catalog) Lookup(sel Selector) ([]ConflictField, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.fields[sel]
	return f, ok
}

// ConflictKeys evaluates tx's declared conflict fields, looked up by its
// (To, Selector) pair, into concrete keys in the account-table namespace so
// the DAG builder can test two transactions for conflict with a plain
// string-set intersection (spec.md §4.6 step 2). serial is true when any
// declared field is ALL-kind, or when tx has no catalog entry at all: an
// undeclared call is conservatively treated as touching everything, the
// same fallback the dispatcher this is grounded on uses for an
// unregistered dag attribute (see DESIGN.md).
func (c *Catalog) ConflictKeys(vmKind facade.VMKind, tx Transaction) (keys []string, serial bool) {
	fields, ok := c.Lookup(Selector{Contract: tx.To, Method: tx.Selector})
	if !ok {
		return nil, true
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		switch f.Kind {
		case ConflictAll:
			serial = true
		case ConflictEnv:
			id := tx.envIdentity(f.EnvField)
			if id == "" {
				continue
			}
			addConflictKey(seen, &keys, facade.AccountTableName(vmKind, id))
		case ConflictVar, ConflictLen:
			if f.ArgIndex < 0 || f.ArgIndex >= len(tx.Args) {
				continue
			}
			arg := tx.Args[f.ArgIndex]
			if f.Kind == ConflictLen {
				addConflictKey(seen, &keys, fmt.Sprintf("len:%d:%d", f.ArgIndex, len(arg)))
			} else {
				addConflictKey(seen, &keys, facade.AccountTableName(vmKind, common.Identity(arg)))
			}
		}
	}
	sort.Strings(keys)
	return keys, serial
}

func addConflictKey(seen map[string]bool, keys *[]string, k string) {
	if seen[k] {
		return
	}
	seen[k] = true
	*keys = append(*keys, k)
}
