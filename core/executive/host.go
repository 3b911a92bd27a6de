package executive

import (
	"context"
	"strings"

	"github.com/holiman/uint256"

	"github.com/morebtcg/bcos-executor-sub001/core/blockctx"
	"github.com/morebtcg/bcos-executor-sub001/core/precompiled"
)

// baseCallGas is the fixed per-message-call overhead charged before any
// precompiled pricing, modeling the gas spec.md §6 leaves to the host
// rather than the precompiled service itself.
const baseCallGas = 700

// outputSeparator joins a precompiled CallResult's decoded string values
// into one Frame.Output. Call sites that need the individual values back
// (table_service_test.go's pattern) talk to the registry directly; Host
// exists for the message-passing path where only a flat byte result
// crosses the frame boundary.
const outputSeparator = "\x00"

// Host is the Executive, component H: it creates a Frame per
// ExecutionMessage, drives it through the state machine, and dispatches to
// the block context's precompiled registry when the call target resolves
// to one. Interpreting arbitrary bytecode is out of scope (spec.md §1
// non-goal) — for a target with no registered precompiled object, Host's
// job is limited to the value transfer and gas accounting every message
// call performs, matching a plain externally-owned-account recipient.
type Host struct {
	block  *blockctx.Context
	pricer precompiled.GasPricer
}

// NewHost binds a Host to one block's execution context and a gas pricer
// for precompiled dispatch.
func NewHost(block *blockctx.Context, pricer precompiled.GasPricer) *Host {
	return &Host{block: block, pricer: pricer}
}

// Call runs one CALL-shaped ExecutionMessage to completion. It opens a
// Frame at a fresh savepoint, consumes the fixed call overhead, dispatches
// to the registry if To names a precompiled object, and returns the
// FINISHED or REVERT outcome. Call moves no value; a value transfer is made
// separately through Transfer before Call runs. On
// REVERT the savepoint is rolled back so no partial state from this call
// survives (spec.md §4.5, §7).
func (h *Host) Call(ctx context.Context, in ExecutionMessage) ExecutionMessage {
	sp := h.block.Facade.Savepoint()
	frame := NewFrame(in.ContextID, in.Depth, in.From, in.To, in.Origin, in.GasAvailable, sp)
	_ = frame.Transition(FrameRunning)

	if !frame.ConsumeGas(baseCallGas) {
		return h.revert(frame, in, StatusOutOfGas)
	}

	if _, isPrecompiled := h.block.Registry.Lookup(in.To); isPrecompiled {
		result, err := h.block.Registry.Invoke(in.To, in.Data, frame.GasRemaining(), in.Origin, in.From, h.pricer)
		if err != nil {
			frame.Message = err.Error()
			return h.revert(frame, in, StatusPrecompiledError)
		}
		if !frame.ConsumeGas(result.GasUsed) {
			return h.revert(frame, in, StatusOutOfGas)
		}
		_ = frame.Transition(FrameFinished)
		return h.finish(frame, in, []byte(strings.Join(result.Values, outputSeparator)))
	}

	// Plain account recipient: nothing further to execute.
	_ = frame.Transition(FrameFinished)
	return h.finish(frame, in, nil)
}

// Transfer moves amount from in.From to in.To via the block's facade
// before Call runs, separated out so callers that don't carry a value
// (e.g. a pure precompiled CALL) can skip it.
func (h *Host) Transfer(ctx context.Context, in ExecutionMessage, amount *uint256.Int) error {
	return h.block.Facade.TransferBalance(ctx, in.From, in.To, amount)
}

func (h *Host) finish(frame *Frame, in ExecutionMessage, output []byte) ExecutionMessage {
	frame.Output = output
	return ExecutionMessage{
		Type:      MsgFinished,
		ContextID: in.ContextID,
		Depth:     in.Depth,
		From:      in.From,
		To:        in.To,
		Origin:    in.Origin,
		GasAvailable: frame.GasRemaining(),
		Data:         output,
		Status:       StatusOK,
		LogEntries:   frame.LogEntries,
		KeyLocks:     frame.KeyLocks,
	}
}

func (h *Host) revert(frame *Frame, in ExecutionMessage, status Status) ExecutionMessage {
	_ = h.block.Facade.Rollback(frame.Savepoint)
	if frame.State != FrameRevert {
		_ = frame.Transition(FrameRevert)
	}
	frame.Revert = status
	return ExecutionMessage{
		Type:         MsgRevert,
		ContextID:    in.ContextID,
		Depth:        in.Depth,
		From:         in.From,
		To:           in.To,
		Origin:       in.Origin,
		GasAvailable: frame.GasRemaining(),
		Status:       status,
		Message:      frame.Message,
	}
}
