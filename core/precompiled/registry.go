package precompiled

import (
	"fmt"
	"sync"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

// firstTransientID is the first id handed out for call-scoped registry
// objects (newEntry()/newCondition()/select() results). Ids below this are
// reserved for well-known singletons (the table factory, sys_config, ...),
// mirroring the original's address-space split between "fixed precompiled
// addresses" and "dynamically allocated precompiled addresses".
const firstTransientID = 0x10000

// Registry resolves a common.Identity to the Object most recently
// registered under it. Transient objects (entries/conditions/entries
// iterators allocated mid-transaction) are handed monotonically increasing
// ids and are never persisted to state — they live only for the lifetime
// of the Registry (spec.md §4.4, "called by registry id, not by value").
type Registry struct {
	vmKind  facade.VMKind
	mu      sync.Mutex
	objects map[common.Identity]Object
	nextID  uint64
}

// NewRegistry returns an empty Registry for the given VM kind.
func NewRegistry(vmKind facade.VMKind) *Registry {
	return &Registry{
		vmKind:  vmKind,
		objects: make(map[common.Identity]Object),
		nextID:  firstTransientID,
	}
}

// Register binds a fixed, well-known identity (e.g. a built-in crypto
// precompile address, or the table factory) to obj.
func (r *Registry) Register(id common.Identity, obj Object) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[id] = obj
}

// RegisterTransient allocates a fresh identity for obj and returns it. Used
// by Table.Select/NewEntry/NewCondition to hand the caller a reference they
// pass back in as an address argument on the next call.
func (r *Registry) RegisterTransient(obj Object) common.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := formatID(r.vmKind, r.nextID)
	r.nextID++
	r.objects[id] = obj
	return id
}

// Lookup resolves id to its Object, or reports ok=false if nothing is
// registered under it.
func (r *Registry) Lookup(id common.Identity) (Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[id]
	return obj, ok
}

// Forget releases a transient object's id so the map no longer holds it.
// Nothing in this module calls it; without it, transient objects stay
// registered for the lifetime of the Registry.
func (r *Registry) Forget(id common.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, id)
}

// Invoke decodes input's selector, resolves target to a Precompiled, prices
// the call via pricer (if non-nil), and dispatches. It is the single entry
// point the executive host calls for any address resolving into this
// registry (spec.md §4.4).
func (r *Registry) Invoke(target common.Identity, input []byte, gasLeft uint64, origin, caller common.Identity, pricer GasPricer) (CallResult, error) {
	obj, ok := r.Lookup(target)
	if !ok {
		return CallResult{}, fmt.Errorf("precompiled: no object registered at %s", target)
	}
	callable, ok := obj.(Precompiled)
	if !ok {
		return CallResult{}, fmt.Errorf("precompiled: object at %s is not callable", target)
	}

	selector, rest, err := DecodeInput(input)
	if err != nil {
		return CallResult{}, err
	}

	var gasUsed uint64
	if pricer != nil {
		gasUsed = pricer.Price(selector, input)
		if gasUsed > gasLeft {
			return CallResult{}, ErrInsufficientGas
		}
	}

	result, err := callable.Call(CallArgs{
		VMKind:   r.vmKind,
		Selector: selector,
		Rest:     rest,
		Origin:   origin,
		Caller:   caller,
		GasLeft:  gasLeft - gasUsed,
	})
	if err != nil {
		return CallResult{}, err
	}
	result.GasUsed += gasUsed
	return result, nil
}
