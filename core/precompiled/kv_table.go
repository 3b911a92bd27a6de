package precompiled

import (
	"context"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// KVTableValueField is the single non-key column of a KV-table
// (original_source KVTablePrecompiled.cpp binds exactly one "value" field).
const KVTableValueField = "value"

// KVTableSchema is the schema a KV-table is created with.
var KVTableSchema = state.Schema{KeyField: "key", ValueFields: []string{KVTableValueField}}

var (
	kvGetSelector = common.Selector("get(string)")
	kvSetSelector = common.Selector("set(string,string)")
)

// KVTableService is the narrower get(key)/set(key,value) convenience
// precompile bound directly to a table, bypassing the newEntry/newCondition
// registry indirection TableService requires (SPEC_FULL supplement #7,
// original_source/libprecompiled/extension/KVTablePrecompiled.cpp).
type KVTableService struct {
	layer StateLayer
	auth  Authorizer
	table *state.Table
}

// NewKVTableService binds a KV-table to its owning layer/authorizer.
func NewKVTableService(layer StateLayer, auth Authorizer, table *state.Table) *KVTableService {
	return &KVTableService{layer: layer, auth: auth, table: table}
}

func (s *KVTableService) Kind() Kind { return KindKVTable }

func (s *KVTableService) Call(args CallArgs) (CallResult, error) {
	ctx := args.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch args.Selector {
	case kvGetSelector:
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TString}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		e, err := s.layer.GetRow(ctx, s.table.Name, decoded[0])
		if err != nil {
			return CallResult{}, err
		}
		if e == nil {
			return CallResult{Values: []string{"", "false"}}, nil
		}
		v, _ := e.GetField(KVTableValueField)
		return CallResult{Values: []string{v, "true"}}, nil

	case kvSetSelector:
		if !s.auth.CheckAuthority(ctx, args.Origin, args.Caller) {
			return CallResult{}, ErrPermissionDenied
		}
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TString, TString}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		key, value := decoded[0], decoded[1]
		if len(key) > UserTableKeyValueMaxLength || len(value) > UserTableFieldValueMaxLength {
			return CallResult{}, ErrTableKeyValueOverflow
		}
		e := state.NewEntry(KVTableSchema)
		if err := e.SetField(KVTableValueField, value); err != nil {
			return CallResult{}, err
		}
		if err := s.layer.SetRow(ctx, s.table.Name, key, e); err != nil {
			return CallResult{}, err
		}
		return CallResult{Values: []string{"1"}}, nil

	default:
		return CallResult{}, ErrUnknownFunctionSelector
	}
}
