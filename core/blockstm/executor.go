package blockstm

import (
	"context"
	"fmt"

	"github.com/JekaMas/workerpool"

	"github.com/morebtcg/bcos-executor-sub001/common"
)

// ExecTask is one transaction's unit of speculative work: re-runnable
// against a given incarnation of the multi-version map, and able to report
// the read/write sets its most recent run produced so the scheduler can
// detect and react to conflicts.
type ExecTask interface {
	// Execute runs the task against mvh, recording reads/writes as if it
	// were transaction incarnation `incarnation`. Returns ErrExecAbortError
	// if a conflicting dependency was observed mid-execution.
	Execute(mvh *MVHashMap, incarnation int) error
	// MVWriteList returns the write set of the most recent Execute call.
	MVWriteList() []WriteDescriptor
	// MVFullWriteList returns the full write set, including entries that
	// may be unchanged from a prior incarnation.
	MVFullWriteList() []WriteDescriptor
	// MVReadList returns the read set of the most recent Execute call.
	MVReadList() []ReadDescriptor
	// Settle is called once a task's writes are final and flushed.
	Settle()
	Sender() common.Address
	Hash() common.Hash
	// Dependencies lists transaction indices this task is known (e.g. from
	// a prior run's recorded metadata) to depend on.
	Dependencies() []int
}

// ErrExecAbortError is returned by ExecTask.Execute when a read observed a
// dependency that hasn't settled yet (or, with a zero Dependency, any
// other condition requiring the task be re-run from scratch).
type ErrExecAbortError struct {
	Dependency  int
	OriginError error
}

func (e ErrExecAbortError) Error() string {
	if e.OriginError != nil {
		return fmt.Sprintf("execution aborted, depends on tx %d: %v", e.Dependency, e.OriginError)
	}
	return fmt.Sprintf("execution aborted, depends on tx %d", e.Dependency)
}

// PropertyCheck inspects a ParallelExecutor's internal state; used by
// tests to assert scheduling invariants hold throughout execution.
type PropertyCheck func(pe *ParallelExecutor) error

// TxnInputOutput records, for every settled transaction, the read set its
// committed execution produced. Indexed by transaction index.
type TxnInputOutput struct {
	inputs  [][]ReadDescriptor
	outputs [][]WriteDescriptor
}

func makeTxnInputOutput(numTx int) *TxnInputOutput {
	return &TxnInputOutput{
		inputs:  make([][]ReadDescriptor, numTx),
		outputs: make([][]WriteDescriptor, numTx),
	}
}

// record keeps only the reads that actually resolved against another
// transaction's committed write (ReadKindMap): that's the genuine
// cross-transaction input dependency a revalidation needs to check.
// Reads that fell through to the pre-block storage layer carry no such
// dependency and are not part of a transaction's recorded input set.
func (io *TxnInputOutput) record(txIdx int, reads []ReadDescriptor, writes []WriteDescriptor) {
	deps := make([]ReadDescriptor, 0, len(reads))
	for _, r := range reads {
		if r.Kind == ReadKindMap {
			deps = append(deps, r)
		}
	}
	io.inputs[txIdx] = deps
	io.outputs[txIdx] = writes
}

// dependencyStats is a placeholder accumulator for the profiling report
// below; ParallelExecutionResult.Stats carries it on every run.
type dependencyStats struct {
	TotalTx      int
	TotalAborts  int
}

// TxDependency is a lightweight dependency graph collected while
// collectMetadata is set: for each transaction, the set of earlier
// transactions it actually read a value from.
type TxDependency struct {
	deps map[int]map[int]bool
}

// Report prints a human-readable summary of the collected dependency
// graph via output, headed by the transaction and abort totals from stats.
func (d *TxDependency) Report(stats dependencyStats, output func(string)) {
	output(fmt.Sprintf("collected dependencies for %d transactions, %d recorded aborts", stats.TotalTx, stats.TotalAborts))
	for tx, ds := range d.deps {
		output(fmt.Sprintf("tx %d depends on %v", tx, ds))
	}
}

// ParallelExecutionResult is the outcome of a completed block execution.
type ParallelExecutionResult struct {
	Deps    *TxDependency
	Stats   *dependencyStats
	AllDeps map[int]map[int]bool
}

// ParallelExecutor drives a block's ExecTasks to completion: each task
// only runs once every transaction index strictly below it has settled
// (optionally extended, under metadata scheduling, to also wait on each
// task's declared Dependencies()). This sacrifices the full speculative
// reordering of the original Block-STM design in exchange for a scheduler
// simple enough to reason about and verify without executing it.
type ParallelExecutor struct {
	tasks       []ExecTask
	execTasks   *statusManager
	lastSettled int
	lastTxIO    *TxnInputOutput
	mvh         *MVHashMap

	metadata bool
	collect  bool

	stats dependencyStats
	deps  *TxDependency
}

// ExecuteParallel runs tasks to completion and returns the resulting
// metadata. collectMetadata requests that the per-transaction dependency
// graph be collected and returned via ParallelExecutionResult.AllDeps.
// metadata requests the scheduler honor each task's declared
// Dependencies() as an additional scheduling gate. ctx, if non-nil and
// cancelled, aborts the run early with ctx.Err().
func ExecuteParallel(tasks []ExecTask, collectMetadata bool, metadata bool, numProcs int, ctx context.Context) (ParallelExecutionResult, error) {
	return executeParallelWithCheck(tasks, collectMetadata, nil, metadata, numProcs, ctx)
}

// executeParallelWithCheck is ExecuteParallel plus an optional check run
// against the ParallelExecutor's state after every settlement, so tests
// can assert scheduling invariants hold throughout the run.
func executeParallelWithCheck(tasks []ExecTask, collectMetadata bool, check PropertyCheck, metadata bool, numProcs int, interruptCtx context.Context) (ParallelExecutionResult, error) {
	if interruptCtx == nil {
		interruptCtx = context.Background()
	}

	pe := &ParallelExecutor{
		tasks:     tasks,
		execTasks: makeStatusManager(len(tasks)),
		mvh:       MakeMVHashMap(),
		lastTxIO:  makeTxnInputOutput(len(tasks)),
		metadata:  metadata,
		collect:   collectMetadata,
		deps:      &TxDependency{deps: make(map[int]map[int]bool)},
	}

	if len(tasks) == 0 {
		return pe.result(), nil
	}

	wp := workerpool.New(numProcs)
	defer wp.StopWait()

	type outcome struct {
		txIdx int
		err   error
	}
	results := make(chan outcome, numProcs)
	inFlight := 0

	for pe.lastSettled < len(tasks) {
		select {
		case <-interruptCtx.Done():
			return pe.result(), interruptCtx.Err()
		default:
		}

		for {
			tx := pe.nextEligible()
			if tx < 0 {
				break
			}

			pe.execTasks.pending = removeFromList(pe.execTasks.pending, tx)
			pe.execTasks.inProgress = insertInList(pe.execTasks.inProgress, tx)
			inFlight++

			task := tasks[tx]
			wp.Submit(func() {
				err := task.Execute(pe.mvh, 0)
				results <- outcome{txIdx: tx, err: err}
			})
		}

		if inFlight == 0 {
			// No eligible task and none in flight: every remaining
			// pending task is blocked on something that will never
			// settle (a declared dependency cycle, typically).
			return pe.result(), fmt.Errorf("blockstm: scheduling stalled with %d transactions unresolved", len(pe.execTasks.pending))
		}

		var res outcome
		select {
		case res = <-results:
		case <-interruptCtx.Done():
			return pe.result(), interruptCtx.Err()
		}
		inFlight--

		task := tasks[res.txIdx]

		if res.err != nil {
			pe.stats.TotalAborts++
			pe.execTasks.markPending(res.txIdx)
			continue
		}

		reads := task.MVReadList()
		writes := task.MVWriteList()
		pe.mvh.FlushMVWriteSet(writes)
		pe.lastTxIO.record(res.txIdx, reads, writes)
		task.Settle()

		pe.execTasks.markComplete(res.txIdx)
		pe.lastSettled = pe.execTasks.maxAllComplete() + 1

		if pe.collect {
			set := make(map[int]bool)
			for _, r := range reads {
				if r.Kind == ReadKindMap && r.V.TxnIndex >= 0 {
					set[r.V.TxnIndex] = true
				}
			}
			pe.deps.deps[res.txIdx] = set
		}
		pe.stats.TotalTx++

		if check != nil {
			if err := check(pe); err != nil {
				return pe.result(), err
			}
		}
	}

	return pe.result(), nil
}

// nextEligible returns the lowest-indexed pending transaction that is
// clear to run: every strictly lower transaction index has settled, and
// (when metadata scheduling is enabled) every index in its declared
// Dependencies() has too. Returns -1 if none qualify yet.
func (pe *ParallelExecutor) nextEligible() int {
	s := pe.execTasks
	for _, tx := range s.pending {
		if tx > 0 && !s.checkComplete(tx-1) {
			continue
		}
		if pe.metadata {
			ready := true
			for _, dep := range pe.tasks[tx].Dependencies() {
				if dep < 0 || dep >= len(pe.tasks) || dep == tx {
					continue
				}
				if !s.checkComplete(dep) {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
		}
		return tx
	}
	return -1
}

func (pe *ParallelExecutor) result() ParallelExecutionResult {
	return ParallelExecutionResult{
		Deps:    pe.deps,
		Stats:   &pe.stats,
		AllDeps: pe.deps.deps,
	}
}
