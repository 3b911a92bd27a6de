package executor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/morebtcg/bcos-executor-sub001/core/blockctx"
	"github.com/morebtcg/bcos-executor-sub001/core/executive"
	"github.com/morebtcg/bcos-executor-sub001/core/precompiled"
)

// SerialExecutor drives execute_transaction (spec.md §4.6 "Serial mode"):
// one root frame per transaction, driven to terminal state in input order,
// every transaction sharing the block's single state layer.
type SerialExecutor struct {
	block  *blockctx.Context
	pricer precompiled.GasPricer

	nextContextID uint64
}

// NewSerialExecutor binds a SerialExecutor to one block's execution
// context.
func NewSerialExecutor(block *blockctx.Context, pricer precompiled.GasPricer) *SerialExecutor {
	return &SerialExecutor{block: block, pricer: pricer}
}

// ExecuteBlock runs txs to completion in input order, returning one receipt
// per transaction. No transaction's outcome aborts the block; each yields
// its own receipt regardless of status (spec.md §3).
func (e *SerialExecutor) ExecuteBlock(ctx context.Context, txs []Transaction) []Receipt {
	start := time.Now()
	defer func() { blockExecutionSeconds.Observe(time.Since(start).Seconds()) }()

	host := executive.NewHost(e.block, e.pricer)
	receipts := make([]Receipt, len(txs))
	for i, tx := range txs {
		receipts[i] = e.executeTransaction(ctx, host, tx)
	}
	return receipts
}

func (e *SerialExecutor) executeTransaction(ctx context.Context, host *executive.Host, tx Transaction) Receipt {
	id := atomic.AddUint64(&e.nextContextID, 1)
	return runTransaction(ctx, host, e.block.Facade, id, tx)
}
