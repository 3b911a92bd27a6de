package executive

import (
	"fmt"

	"github.com/morebtcg/bcos-executor-sub001/common"
)

// FrameState is a single contract frame's position in its lifecycle
// (spec.md §4.5): IDLE -> RUNNING -> {SUSPENDED_CALL|SUSPENDED_IO} ->
// RUNNING -> {FINISHED|REVERT}.
type FrameState int

const (
	FrameIdle FrameState = iota
	FrameRunning
	FrameSuspendedCall
	FrameSuspendedIO
	FrameFinished
	FrameRevert
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "IDLE"
	case FrameRunning:
		return "RUNNING"
	case FrameSuspendedCall:
		return "SUSPENDED_CALL"
	case FrameSuspendedIO:
		return "SUSPENDED_IO"
	case FrameFinished:
		return "FINISHED"
	case FrameRevert:
		return "REVERT"
	default:
		return "UNKNOWN"
	}
}

// ErrInvalidTransition is returned by Frame.Transition when the requested
// state is not reachable from the current one.
var ErrInvalidTransition = fmt.Errorf("executive: invalid frame state transition")

var validTransitions = map[FrameState]map[FrameState]bool{
	FrameIdle:          {FrameRunning: true},
	FrameRunning:       {FrameSuspendedCall: true, FrameSuspendedIO: true, FrameFinished: true, FrameRevert: true},
	FrameSuspendedCall: {FrameRunning: true, FrameRevert: true},
	FrameSuspendedIO:   {FrameRunning: true, FrameRevert: true},
	FrameFinished:      {},
	FrameRevert:        {},
}

// Frame is one contract-call activation record: an id, its state, the
// entry savepoint it must roll back to on REVERT, accumulated gas, log
// entries, and the key-lock set it has acquired this step (spec.md §4.5).
type Frame struct {
	ContextID uint64
	Depth     int
	State     FrameState

	From   common.Identity
	To     common.Identity
	Origin common.Identity

	Savepoint  int
	GasLimit   uint64
	GasUsed    uint64
	StaticCall bool

	LogEntries []LogEntry
	KeyLocks   []KeyLock

	Output  []byte
	Revert  Status
	Message string
}

// NewFrame starts a fresh frame IDLE, bound to contextID/depth and an
// entry savepoint captured by the caller before mutating state.
func NewFrame(contextID uint64, depth int, from, to, origin common.Identity, gasLimit uint64, savepoint int) *Frame {
	return &Frame{
		ContextID: contextID,
		Depth:     depth,
		State:     FrameIdle,
		From:      from,
		To:        to,
		Origin:    origin,
		GasLimit:  gasLimit,
		Savepoint: savepoint,
	}
}

// Transition moves the frame to next, failing with ErrInvalidTransition if
// that move isn't legal from the current state.
func (f *Frame) Transition(next FrameState) error {
	if !validTransitions[f.State][next] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.State, next)
	}
	f.State = next
	return nil
}

// GasRemaining is GasLimit minus GasUsed, floored at zero.
func (f *Frame) GasRemaining() uint64 {
	if f.GasUsed >= f.GasLimit {
		return 0
	}
	return f.GasLimit - f.GasUsed
}

// ConsumeGas debits amount from the frame's remaining gas. If amount
// exceeds what remains, the frame transitions to REVERT with
// StatusOutOfGas and ConsumeGas reports false (spec.md §4.5 "a frame that
// runs out of gas transitions to REVERT with status OUT_OF_GAS").
func (f *Frame) ConsumeGas(amount uint64) bool {
	if amount > f.GasRemaining() {
		f.GasUsed = f.GasLimit
		_ = f.Transition(FrameRevert)
		f.Revert = StatusOutOfGas
		f.Message = "OUT_OF_GAS"
		return false
	}
	f.GasUsed += amount
	return true
}

// AddLog appends a log entry, discarded wholesale if this frame reverts.
func (f *Frame) AddLog(entry LogEntry) { f.LogEntries = append(f.LogEntries, entry) }

// AcquireKeyLock records a read/write lock this frame holds this step
// (spec.md §5 key-lock protocol).
func (f *Frame) AcquireKeyLock(table, key string, write bool) {
	f.KeyLocks = append(f.KeyLocks, KeyLock{Table: table, Key: key, Write: write})
}
