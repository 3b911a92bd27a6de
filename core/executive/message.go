// Package executive is the Executive / Coroutine Host, component H of
// spec.md §4.5: a single contract frame modeled as a cooperative task that
// suspends at external calls and storage I/O and resumes on their
// responses, re-architected per spec.md §9 as message passing (an opaque
// integer context id plus channels) rather than a coroutine holding a
// back-reference to its executive.
package executive

import (
	"github.com/morebtcg/bcos-executor-sub001/common"
)

// MessageType is the ExecutionMessage.type enum (spec.md §6).
type MessageType int

const (
	MsgTxHash MessageType = iota
	MsgMessage
	MsgFinished
	MsgRevert
	MsgSendBack
	MsgKeyLock
	MsgWaitKey
)

// LogEntry is one event-log record emitted by a frame; discarded wholesale
// if that frame ultimately reverts (spec.md §7).
type LogEntry struct {
	Address common.Identity
	Topics  []common.Hash
	Data    []byte
}

// KeyLock is one (table,key,write) lock a frame holds, attached to outbound
// ExecutionMessages so the key-lock protocol (spec.md §5) can detect
// conflicts across parallel transactions.
type KeyLock struct {
	Table string
	Key   string
	Write bool
}

// ExecutionMessage is the transport between the Transaction Executor and
// the VM host (spec.md §6): every CALL/CREATE/return/revert/key-lock
// negotiation flows through one of these.
type ExecutionMessage struct {
	Type   MessageType
	ContextID   uint64
	Seq         uint64
	Depth       int
	From        common.Identity
	To          common.Identity
	Origin      common.Identity
	TransactionHash common.Hash
	GasAvailable    uint64
	Data            []byte
	StaticCall      bool
	CreateSalt      *common.Hash
	Create          bool
	Status          Status
	Message         string
	NewEVMContractAddress common.Identity
	LogEntries            []LogEntry
	KeyLocks              []KeyLock
}

// Status is the terminal or in-flight outcome code carried on an
// ExecutionMessage.
type Status int

const (
	StatusOK Status = iota
	StatusRevert
	StatusOutOfGas
	StatusWaitKey
	StatusPrecompiledError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRevert:
		return "REVERT"
	case StatusOutOfGas:
		return "OUT_OF_GAS"
	case StatusWaitKey:
		return "WAIT_KEY"
	case StatusPrecompiledError:
		return "PRECOMPILED_ERROR"
	default:
		return "UNKNOWN"
	}
}
