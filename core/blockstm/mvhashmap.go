// Package blockstm is the DAG-parallel Transaction Executor's conflict
// substrate, component I's multi-version memory: a hash map from logical
// storage key to the sequence of versioned writes made against it, letting
// a reader at transaction index txIdx observe exactly the write made by
// the highest-indexed transaction strictly below txIdx (spec.md §5's
// "optimistic concurrency, re-execute on conflict" policy, generalized
// from the key-lock table to an arbitrary addressable key so both state
// rows and precompiled-registry handles can be tracked uniformly).
package blockstm

import (
	"sort"
	"sync"

	"github.com/morebtcg/bcos-executor-sub001/common"
)

// keyKind distinguishes the three shapes of key this executor tracks:
// whole-account, a single state slot, or an opaque numbered subpath (used
// by tests and by callers that don't need per-slot resolution, e.g. "this
// transaction touched the account's nonce region").
type keyKind byte

const (
	keyKindAddress keyKind = iota
	keyKindState
	keyKindSubpath
)

// Key is a comparable conflict-detection key: an account address, one of
// its state slots, or a numbered subpath under it. Comparable structs let
// Key serve directly as a map key with no boxing/interface indirection.
type Key struct {
	kind keyKind
	addr common.Address
	slot common.Hash
	path byte
}

// NewAddressKey returns the conflict key for addr as a whole (account
// creation/destruction, balance).
func NewAddressKey(addr common.Address) Key { return Key{kind: keyKindAddress, addr: addr} }

// NewStateKey returns the conflict key for one storage slot of addr.
func NewStateKey(addr common.Address, slot common.Hash) Key {
	return Key{kind: keyKindState, addr: addr, slot: slot}
}

// NewSubpathKey returns the conflict key for a numbered subpath of addr
// (e.g. "its nonce", "its code") when callers don't need slot-level
// resolution.
func NewSubpathKey(addr common.Address, path byte) Key {
	return Key{kind: keyKindSubpath, addr: addr, path: path}
}

func (k Key) IsAddress() bool    { return k.kind == keyKindAddress }
func (k Key) IsState() bool      { return k.kind == keyKindState }
func (k Key) IsSubpath() bool    { return k.kind == keyKindSubpath }
func (k Key) GetAddress() common.Address { return k.addr }
func (k Key) GetStateKey() common.Hash   { return k.slot }
func (k Key) GetSubpath() byte           { return k.path }

// Version identifies one incarnation of one transaction's write.
type Version struct {
	TxnIndex    int
	Incarnation int
}

// WriteDescriptor is one entry of a task's write set: the key it touched,
// the version that wrote it, and the value written.
type WriteDescriptor struct {
	Path Key
	V    Version
	Val  interface{}
}

// ReadKind classifies where a ReadDescriptor's value came from: another
// transaction's multi-version entry, or the underlying (pre-block)
// storage layer.
const (
	ReadKindMap = iota
	ReadKindStorage
)

// ReadDescriptor is one entry of a task's read set, recorded so a later
// conflicting write can be detected against it.
type ReadDescriptor struct {
	Path Key
	Kind int
	V    Version
}

// MVReadResult statuses, in the order the original Block-STM note orders
// them: a definite value (Done), a value currently blocked behind an
// in-flight or estimated write (Dependency), or nothing written yet at all
// (None, fall through to the pre-block storage layer).
const (
	MVReadResultDone = iota
	MVReadResultDependency
	MVReadResultNone
)

// MVReadResult is the outcome of MVHashMap.Read: the index/incarnation
// that produced the value (or -1/-1 if none applies), the value itself,
// and a status classifying which of the three cases above occurred.
type MVReadResult struct {
	depIdx      int
	incarnation int
	value       interface{}
	status      int
}

func (r MVReadResult) DepIdx() int           { return r.depIdx }
func (r MVReadResult) Incarnation() int      { return r.incarnation }
func (r MVReadResult) Value() interface{}    { return r.value }
func (r MVReadResult) Status() int           { return r.status }

type mvEntry struct {
	incarnation int
	estimate    bool
	data        interface{}
}

// keyVersions holds every txn-indexed write made against one Key, kept
// sorted by transaction index for O(log n) "nearest write below txIdx"
// lookups.
type keyVersions struct {
	mu      sync.RWMutex
	entries map[int]*mvEntry
	sorted  []int
}

func newKeyVersions() *keyVersions {
	return &keyVersions{entries: make(map[int]*mvEntry)}
}

func (kv *keyVersions) write(txIdx, incarnation int, data interface{}) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if e, ok := kv.entries[txIdx]; ok {
		e.incarnation = incarnation
		e.estimate = false
		e.data = data
		return
	}

	i := sort.SearchInts(kv.sorted, txIdx)
	kv.sorted = append(kv.sorted, 0)
	copy(kv.sorted[i+1:], kv.sorted[i:])
	kv.sorted[i] = txIdx
	kv.entries[txIdx] = &mvEntry{incarnation: incarnation, data: data}
}

func (kv *keyVersions) markEstimate(txIdx int) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if e, ok := kv.entries[txIdx]; ok {
		e.estimate = true
	}
}

func (kv *keyVersions) delete(txIdx int) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	i := sort.SearchInts(kv.sorted, txIdx)
	if i >= len(kv.sorted) || kv.sorted[i] != txIdx {
		return
	}
	kv.sorted = append(kv.sorted[:i], kv.sorted[i+1:]...)
	delete(kv.entries, txIdx)
}

// readBelow returns the entry for the largest transaction index strictly
// below readerTxIdx, or ok=false if none exists.
func (kv *keyVersions) readBelow(readerTxIdx int) (idx int, e mvEntry, ok bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	i := sort.SearchInts(kv.sorted, readerTxIdx)
	if i == 0 {
		return 0, mvEntry{}, false
	}
	idx = kv.sorted[i-1]
	return idx, *kv.entries[idx], true
}

// MVHashMap is the multi-version store: one keyVersions per distinct Key,
// safe for concurrent Read/Write/MarkEstimate/Delete from many worker
// goroutines at once (spec.md §5 DAG-parallel execution).
type MVHashMap struct {
	keys sync.Map // map[Key]*keyVersions
}

// MakeMVHashMap returns an empty MVHashMap.
func MakeMVHashMap() *MVHashMap { return &MVHashMap{} }

func (mvh *MVHashMap) keyVersionsFor(k Key) *keyVersions {
	v, _ := mvh.keys.LoadOrStore(k, newKeyVersions())
	return v.(*keyVersions)
}

// Write records that transaction v.TxnIndex, incarnation v.Incarnation,
// wrote data at k.
func (mvh *MVHashMap) Write(k Key, v Version, data interface{}) {
	mvh.keyVersionsFor(k).write(v.TxnIndex, v.Incarnation, data)
}

// Read returns the value a reader at txIdx observes at k: the write made
// by the nearest lower-indexed transaction, a Dependency result if that
// write is currently marked an estimate, or None if nothing has been
// written below txIdx (the reader should fall through to storage).
func (mvh *MVHashMap) Read(k Key, txIdx int) MVReadResult {
	v, ok := mvh.keys.Load(k)
	if !ok {
		return MVReadResult{depIdx: -1, incarnation: -1, status: MVReadResultNone}
	}

	idx, e, ok := v.(*keyVersions).readBelow(txIdx)
	if !ok {
		return MVReadResult{depIdx: -1, incarnation: -1, status: MVReadResultNone}
	}
	if e.estimate {
		return MVReadResult{depIdx: idx, incarnation: -1, status: MVReadResultDependency}
	}
	return MVReadResult{depIdx: idx, incarnation: e.incarnation, value: e.data, status: MVReadResultDone}
}

// MarkEstimate flags txIdx's current write at k as a placeholder: readers
// that would otherwise observe it instead get a Dependency result, so they
// block/retry rather than proceeding on a value that's about to change.
func (mvh *MVHashMap) MarkEstimate(k Key, txIdx int) {
	if v, ok := mvh.keys.Load(k); ok {
		v.(*keyVersions).markEstimate(txIdx)
	}
}

// Delete removes txIdx's write at k entirely (e.g. an aborted incarnation
// that never re-wrote this key). A no-op if k or txIdx isn't present.
func (mvh *MVHashMap) Delete(k Key, txIdx int) {
	if v, ok := mvh.keys.Load(k); ok {
		v.(*keyVersions).delete(txIdx)
	}
}

// FlushMVWriteSet applies an entire write set at once, used to commit a
// settled transaction's final writes in one call.
func (mvh *MVHashMap) FlushMVWriteSet(writes []WriteDescriptor) {
	for _, w := range writes {
		mvh.Write(w.Path, w.V, w.Val)
	}
}
