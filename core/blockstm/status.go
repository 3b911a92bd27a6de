package blockstm

import "sort"

// statusManager tracks, for a block of n transactions being executed by the
// ParallelExecutor, which are still pending a first/re-execution, which are
// currently being executed by some worker, and which have settled. It also
// tracks a dynamic "blocked on dependency" relationship so a worker that
// aborts on a detected MVCC conflict can park the dependent transaction
// until its dependency settles, instead of busy-retrying it.
type statusManager struct {
	pending    []int
	inProgress []int
	complete   []int

	// dependency maps a blocked transaction index to the index it is
	// waiting on.
	dependency map[int]int
	// blocking maps a transaction index to the set of transactions
	// currently blocked on it.
	blocking map[int]map[int]bool
}

func makeStatusManager(numTx int) *statusManager {
	pending := make([]int, numTx)
	for i := range pending {
		pending[i] = i
	}
	return &statusManager{
		pending:    pending,
		dependency: make(map[int]int),
		blocking:   make(map[int]map[int]bool),
	}
}

// insertInList inserts v into a sorted list of unique ints, if not
// already present.
func insertInList(list []int, v int) []int {
	i := sort.SearchInts(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

// removeFromList removes v from a sorted list of unique ints, if present.
func removeFromList(list []int, v int) []int {
	i := sort.SearchInts(list, v)
	if i >= len(list) || list[i] != v {
		return list
	}
	return append(list[:i], list[i+1:]...)
}

// takeNextPending moves the first pending transaction (not currently
// blocked on a dependency) into inProgress and returns its index, or -1 if
// none are available to take.
func (s *statusManager) takeNextPending() int {
	for i, tx := range s.pending {
		if _, blocked := s.dependency[tx]; blocked {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		s.inProgress = insertInList(s.inProgress, tx)
		return tx
	}
	return -1
}

// checkInProgress reports whether tx is currently being executed.
func (s *statusManager) checkInProgress(tx int) bool {
	i := sort.SearchInts(s.inProgress, tx)
	return i < len(s.inProgress) && s.inProgress[i] == tx
}

// checkComplete reports whether tx has settled.
func (s *statusManager) checkComplete(tx int) bool {
	i := sort.SearchInts(s.complete, tx)
	return i < len(s.complete) && s.complete[i] == tx
}

// checkPending reports whether tx is awaiting its first/next execution.
func (s *statusManager) checkPending(tx int) bool {
	i := sort.SearchInts(s.pending, tx)
	return i < len(s.pending) && s.pending[i] == tx
}

// markComplete moves tx from inProgress to complete, and releases any
// transaction that was solely blocked on it.
func (s *statusManager) markComplete(tx int) {
	s.inProgress = removeFromList(s.inProgress, tx)
	s.complete = insertInList(s.complete, tx)
	s.unblock(tx)
}

// markPending moves tx out of inProgress and back into pending, for a
// re-execution (e.g. after an abort, or an invalidating revalidation).
func (s *statusManager) markPending(tx int) {
	s.inProgress = removeFromList(s.inProgress, tx)
	s.complete = removeFromList(s.complete, tx)
	s.pending = insertInList(s.pending, tx)
}

// addDependency records that tx is blocked waiting on dependency settling,
// unless dependency has already settled, in which case it reports false
// and does nothing (the caller should simply retry tx).
func (s *statusManager) addDependency(tx, dependency int) bool {
	if s.checkComplete(dependency) {
		return false
	}
	s.inProgress = removeFromList(s.inProgress, tx)
	s.pending = insertInList(s.pending, tx)
	s.dependency[tx] = dependency
	if s.blocking[dependency] == nil {
		s.blocking[dependency] = make(map[int]bool)
	}
	s.blocking[dependency][tx] = true
	return true
}

// unblock releases every transaction blocked on dependency.
func (s *statusManager) unblock(dependency int) {
	for tx := range s.blocking[dependency] {
		delete(s.dependency, tx)
	}
	delete(s.blocking, dependency)
}

// isBlocked reports whether tx is currently parked behind a dependency.
func (s *statusManager) isBlocked(tx int) bool {
	_, ok := s.dependency[tx]
	return ok
}

// countComplete returns the number of settled transactions.
func (s *statusManager) countComplete() int {
	return len(s.complete)
}

// maxAllComplete returns the largest N such that every transaction index
// 0..N is present in complete, or -1 if tx 0 itself hasn't settled.
func (s *statusManager) maxAllComplete() int {
	max := -1
	for _, tx := range s.complete {
		if tx == max+1 {
			max = tx
		} else if tx > max+1 {
			break
		}
	}
	return max
}

// getRevalidationRange returns every settled transaction index in
// [from, maxAllComplete()]: the already-settled transactions that must be
// re-checked after transaction `from` changed, bounded by the point past
// which completeness isn't yet contiguous (and so can't be trusted as
// revalidated in order).
func (s *statusManager) getRevalidationRange(from int) []int {
	upper := s.maxAllComplete()
	var out []int
	for _, tx := range s.complete {
		if tx >= from && tx <= upper {
			out = append(out, tx)
		}
	}
	return out
}
