package precompiled

import (
	"context"
	"fmt"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

// Kind tags a registry Object with its concrete role so callers can recover
// the narrow interface they need (spec.md §9 design note: a plain Go
// interface stands in for the original's RTTI-style downcast).
type Kind int

const (
	KindTable Kind = iota
	KindEntry
	KindCondition
	KindEntries
	KindKVTable
	KindCrypto
)

// CallArgs is one precompiled invocation: the decoded selector plus the
// still-encoded argument bytes that follow it (Rest), the call's context,
// and the transaction's origin/caller pair for authority checks.
type CallArgs struct {
	Ctx      context.Context
	VMKind   facade.VMKind
	Selector [4]byte
	Rest     []byte
	Origin   common.Identity
	Caller   common.Identity
	GasLeft  uint64
}

// CallResult is the outcome of a precompiled invocation: the string-form
// return values and the gas consumed. For calls that allocate a new
// registry object (e.g. newEntry()/newCondition()/select()), Values[0] is
// the identity of that object.
type CallResult struct {
	Values   []string
	GasUsed  uint64
}

// Object is anything addressable by a registry identity: tables, entries,
// conditions and entries-iterators all implement it.
type Object interface {
	Kind() Kind
}

// Precompiled is a callable registry object: it decodes its own call
// arguments (since each service has a different function-signature table)
// and returns a result or a precompiled-level error (spec.md §4.4/§7).
type Precompiled interface {
	Object
	Call(args CallArgs) (CallResult, error)
}

// GasPricer prices a precompiled call from its selector and encoded input
// alone; every kind of object, crypto precompile or table/entry/condition
// service, is priced the same way. A pricer does not see the rows a call
// touches, so no price here depends on a row's CapacityOfHashField.
type GasPricer interface {
	Price(selector [4]byte, input []byte) uint64
}

// ErrInsufficientGas is returned by Registry.Invoke when GasLeft is below
// the priced cost of the call.
var ErrInsufficientGas = fmt.Errorf("precompiled: %s", "INSUFFICIENT_GAS")

// formatID assigns a transient registry id per spec.md §4.4: a 20-byte
// big-endian address for NATIVE, a decimal-ASCII string for LINEAR.
func formatID(vmKind facade.VMKind, n uint64) common.Identity {
	if vmKind == facade.LINEAR {
		return common.Identity(fmt.Sprintf("%d", n))
	}
	return common.NativeIdentity(common.BytesToAddress(common.FromHex(fmt.Sprintf("%040x", n))))
}
