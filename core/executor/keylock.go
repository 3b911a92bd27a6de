package executor

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// keyHolder tracks which transactions currently hold a lock on one
// conflict key: any number of concurrent readers, or exactly one writer,
// never both (spec.md §5 "key-lock protocol").
type keyHolder struct {
	readers   mapset.Set[uint64]
	writer    uint64
	hasWriter bool
}

// Ledger is the key-lock ledger: a per-block table of read/write locks
// keyed by the same concrete strings the conflict-field Catalog produces.
// A frame's declared lock set is acquired atomically before the frame
// runs (the message-passing analogue of "the lock set is attached to the
// outbound ExecutionMessage"); a conflicting acquisition names the key that
// blocked it, the WAIT_KEY condition of spec.md §5.
type Ledger struct {
	mu    sync.Mutex
	locks map[string]*keyHolder
	held  map[uint64]mapset.Set[string]
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		locks: make(map[string]*keyHolder),
		held:  make(map[uint64]mapset.Set[string]),
	}
}

// Acquire grants txID a lock on key. write requests exclusive access;
// non-write (read) locks may be shared among readers but not alongside a
// writer. Returns ok=false and the conflicting key if another transaction
// already holds an incompatible lock.
func (l *Ledger) Acquire(txID uint64, key string, write bool) (ok bool, conflictKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, exists := l.locks[key]
	if !exists {
		h = &keyHolder{readers: mapset.NewSet[uint64]()}
		l.locks[key] = h
	}

	if h.hasWriter && h.writer != txID {
		return false, key
	}
	if write {
		others := h.readers.Clone()
		others.Remove(txID)
		if others.Cardinality() > 0 {
			return false, key
		}
		h.hasWriter = true
		h.writer = txID
	} else {
		h.readers.Add(txID)
	}

	set, ok2 := l.held[txID]
	if !ok2 {
		set = mapset.NewSet[string]()
		l.held[txID] = set
	}
	set.Add(key)
	return true, ""
}

// AcquireAll acquires a lock on every key for txID, all-or-nothing: if any
// one acquisition conflicts, everything this call itself granted is
// released before returning the conflicting key.
func (l *Ledger) AcquireAll(txID uint64, keys []string, write bool) (ok bool, conflictKey string) {
	acquired := make([]string, 0, len(keys))
	for _, k := range keys {
		granted, conflict := l.Acquire(txID, k, write)
		if !granted {
			for _, a := range acquired {
				l.releaseOne(txID, a)
			}
			return false, conflict
		}
		acquired = append(acquired, k)
	}
	return true, ""
}

// Release drops every lock txID currently holds.
func (l *Ledger) Release(txID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys, ok := l.held[txID]
	if !ok {
		return
	}
	keys.Each(func(k string) bool {
		l.releaseLocked(txID, k)
		return false
	})
	delete(l.held, txID)
}

func (l *Ledger) releaseOne(txID uint64, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked(txID, key)
	if set, ok := l.held[txID]; ok {
		set.Remove(key)
	}
}

// releaseLocked assumes l.mu is already held.
func (l *Ledger) releaseLocked(txID uint64, key string) {
	h, ok := l.locks[key]
	if !ok {
		return
	}
	h.readers.Remove(txID)
	if h.hasWriter && h.writer == txID {
		h.hasWriter = false
	}
	if h.readers.Cardinality() == 0 && !h.hasWriter {
		delete(l.locks, key)
	}
}
