package precompiled

import (
	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

var (
	entriesGetEntrySelector = common.Selector("get(int256)")
	entriesSizeSelector     = common.Selector("size()")
)

// EntriesService wraps a slice of rows selected by Table.Select as a
// registry Object, the equivalent of the original's EntriesPrecompiled
// (original_source/libprecompiled/EntriesPrecompiled.cpp): get(i) and
// size(), with each row lazily wrapped as its own EntryService object on
// first access so callers address individual rows by registry id.
type EntriesService struct {
	reg  *Registry
	rows []*state.Entry
	ids  []common.Identity
}

// NewEntriesService wraps rows for iteration, registering nothing until a
// row is actually requested.
func NewEntriesService(reg *Registry, rows []*state.Entry) *EntriesService {
	return &EntriesService{reg: reg, rows: rows, ids: make([]common.Identity, len(rows))}
}

func (s *EntriesService) Kind() Kind  { return KindEntries }
func (s *EntriesService) Len() int    { return len(s.rows) }

func (s *EntriesService) Call(args CallArgs) (CallResult, error) {
	switch args.Selector {
	case entriesSizeSelector:
		return CallResult{Values: []string{itoa(len(s.rows))}}, nil

	case entriesGetEntrySelector:
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TInt256}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		idx := atoiOrZero(decoded[0])
		if idx < 0 || idx >= len(s.rows) {
			return CallResult{}, ErrKeyNotInEntry
		}
		if s.ids[idx] == "" {
			s.ids[idx] = s.reg.RegisterTransient(WrapEntry(s.rows[idx]))
		}
		return CallResult{Values: []string{string(s.ids[idx])}}, nil

	default:
		return CallResult{}, ErrUnknownFunctionSelector
	}
}
