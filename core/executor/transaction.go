// Package executor is the Transaction Executor, component I of spec.md
// §4.6: it orchestrates serial per-block execution and DAG-parallel
// execution, owns the key-lock ledger, and performs two-phase commit to the
// backend.
package executor

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/executive"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

// Transaction is one externally-submitted call the executor runs to
// completion, producing a Receipt (spec.md §4.6).
type Transaction struct {
	Hash   common.Hash
	From   common.Identity
	To     common.Identity
	Origin common.Identity

	// Selector is the first 4 bytes of the configured hash of the called
	// method's ASCII signature (spec.md §6), used to look this transaction
	// up in the conflict-field Catalog.
	Selector [4]byte
	// Args is the decoded-argument view the catalog's VAR/LEN conflict
	// fields index into. Decoding call data into Args is the caller's
	// responsibility: bytecode interpretation is out of scope (spec.md §1).
	Args []string

	GasLimit uint64
	Value    *uint256.Int
	Data     []byte

	StaticCall bool
	Create     bool
	CreateSalt *common.Hash
}

func (tx Transaction) origin() common.Identity {
	if tx.Origin != "" {
		return tx.Origin
	}
	return tx.From
}

// envIdentity resolves an ENV-kind ConflictField's field name to the
// transaction identity it names.
func (tx Transaction) envIdentity(field string) common.Identity {
	switch field {
	case "from":
		return tx.From
	case "to":
		return tx.To
	case "origin":
		return tx.origin()
	default:
		return ""
	}
}

// Receipt is a transaction's terminal outcome: the status/gas/output an
// ExecutionMessage carried back, plus the event logs its frame tree
// accumulated (spec.md §3 "every transaction yields its own receipt").
type Receipt struct {
	TxHash  common.Hash
	Status  executive.Status
	GasUsed uint64
	Output  []byte
	Message string
	Logs    []executive.LogEntry
}

// runTransaction drives one transaction's root frame through host to
// completion against f: the block's shared facade in serial mode, a
// per-task child facade branched off the shared layer in DAG mode. A
// nonzero Value is transferred before the call frame opens; a transfer
// failure reverts the transaction without opening a frame at all.
func runTransaction(ctx context.Context, host *executive.Host, f *facade.Facade, contextID uint64, tx Transaction) Receipt {
	if tx.Value != nil && !tx.Value.IsZero() {
		if err := f.TransferBalance(ctx, tx.From, tx.To, tx.Value); err != nil {
			return Receipt{TxHash: tx.Hash, Status: executive.StatusRevert, Message: err.Error()}
		}
	}

	in := executive.ExecutionMessage{
		Type:            executive.MsgMessage,
		ContextID:       contextID,
		From:            tx.From,
		To:              tx.To,
		Origin:          tx.origin(),
		TransactionHash: tx.Hash,
		GasAvailable:    tx.GasLimit,
		Data:            tx.Data,
		StaticCall:      tx.StaticCall,
		Create:          tx.Create,
		CreateSalt:      tx.CreateSalt,
	}
	out := host.Call(ctx, in)

	gasUsed := tx.GasLimit
	if out.GasAvailable < tx.GasLimit {
		gasUsed = tx.GasLimit - out.GasAvailable
	}
	return Receipt{
		TxHash:  tx.Hash,
		Status:  out.Status,
		GasUsed: gasUsed,
		Output:  out.Data,
		Message: out.Message,
		Logs:    out.LogEntries,
	}
}
