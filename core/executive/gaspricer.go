package executive

// StandardPricer is the default precompiled.GasPricer: a fixed opcode cost
// per call plus PerByteCost for each byte of the call's encoded input. It
// does not see the rows a call reads or writes, so table operations are
// not billed by the CapacityOfHashField of the rows they touch. Built-in
// crypto precompiles are cheap and dominated by BaseCost; table/entry/
// condition calls are dominated by PerByteCost on their (usually larger)
// argument payload.
type StandardPricer struct {
	BaseCost    uint64
	PerByteCost uint64
}

// DefaultPricer matches the original's rough order of magnitude for a
// single-row table operation: a few hundred gas of fixed overhead plus one
// gas per byte moved.
var DefaultPricer = StandardPricer{BaseCost: 300, PerByteCost: 1}

// Price implements precompiled.GasPricer.
func (p StandardPricer) Price(selector [4]byte, input []byte) uint64 {
	return p.BaseCost + p.PerByteCost*uint64(len(input))
}
