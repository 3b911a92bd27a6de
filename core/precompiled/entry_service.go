package precompiled

import (
	"fmt"
	"math/big"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// entrySignatures mirrors the EntryPrecompiled function table
// (original_source/libprecompiled/EntryPrecompiled.cpp): getters take one
// field-name string, setters take a field-name string plus a typed value.
var entrySignatures = map[[4]byte]struct {
	name  string
	types []ArgType
}{
	common.Selector("getInt(string)"):           {"getInt", []ArgType{TString}},
	common.Selector("getUInt(string)"):          {"getUInt", []ArgType{TString}},
	common.Selector("getAddress(string)"):       {"getAddress", []ArgType{TString}},
	common.Selector("getBytes64(string)"):       {"getBytes64", []ArgType{TString}},
	common.Selector("getBytes32(string)"):       {"getBytes32", []ArgType{TString}},
	common.Selector("getString(string)"):        {"getString", []ArgType{TString}},
	common.Selector("set(string,int256)"):       {"setInt", []ArgType{TString, TInt256}},
	common.Selector("set(string,uint256)"):      {"setUint", []ArgType{TString, TUint256}},
	common.Selector("set(string,address)"):      {"setAddress", []ArgType{TString, TAddress}},
	common.Selector("set(string,string)"):       {"setString", []ArgType{TString, TString}},
}

// EntryService wraps a single state.Entry as a registry Object, the
// equivalent of an EntryPrecompiled instance bound to one Entry (spec.md
// §4.4, original_source EntryPrecompiled.cpp).
type EntryService struct {
	entry *state.Entry
}

// NewEntryService returns a fresh, unbound entry wrapper — the result of a
// Table.NewEntry() call, before any fields have been set.
func NewEntryService(schema state.Schema) *EntryService {
	return &EntryService{entry: state.NewEntry(schema)}
}

// WrapEntry wraps an already-populated entry, the result of Table.Select.
func WrapEntry(e *state.Entry) *EntryService { return &EntryService{entry: e} }

func (s *EntryService) Kind() Kind          { return KindEntry }
func (s *EntryService) Entry() *state.Entry { return s.entry }

func (s *EntryService) Call(args CallArgs) (CallResult, error) {
	sig, ok := entrySignatures[args.Selector]
	if !ok {
		return CallResult{}, ErrUnknownFunctionSelector
	}
	decoded, err := DecodeArgs(args.VMKind, sig.types, args.Rest)
	if err != nil {
		return CallResult{}, err
	}

	switch sig.name {
	case "getInt", "getUInt", "getAddress", "getBytes64", "getBytes32", "getString":
		v, ok := s.entry.GetField(decoded[0])
		if !ok {
			return CallResult{}, ErrKeyNotInEntry
		}
		return CallResult{Values: []string{v}}, nil

	case "setInt", "setUint":
		if _, ok := new(big.Int).SetString(decoded[1], 10); !ok {
			return CallResult{}, fmt.Errorf("precompiled: %w: not an integer literal", ErrParseEntry)
		}
		if err := s.entry.SetField(decoded[0], decoded[1]); err != nil {
			return CallResult{}, err
		}
		return CallResult{}, nil

	case "setAddress", "setString":
		if err := s.entry.SetField(decoded[0], decoded[1]); err != nil {
			return CallResult{}, err
		}
		return CallResult{}, nil

	default:
		return CallResult{}, ErrUnknownFunctionSelector
	}
}
