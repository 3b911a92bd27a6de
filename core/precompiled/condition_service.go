package precompiled

import (
	"strconv"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// conditionSignatures mirrors ConditionPrecompiled
// (original_source/libprecompiled/ConditionPrecompiled.cpp): six comparator
// builders of the shape op(string,<type>), plus a limit(int,int) setter.
var conditionSignatures = map[[4]byte]struct {
	name  string
	types []ArgType
	cmp   state.Comparator
}{
	common.Selector("EQ(string,int256)"):    {"EQ", []ArgType{TString, TInt256}, state.CompEQ},
	common.Selector("EQ(string,string)"):    {"EQ", []ArgType{TString, TString}, state.CompEQ},
	common.Selector("EQ(string,address)"):   {"EQ", []ArgType{TString, TAddress}, state.CompEQ},
	common.Selector("NE(string,int256)"):    {"NE", []ArgType{TString, TInt256}, state.CompNE},
	common.Selector("NE(string,string)"):    {"NE", []ArgType{TString, TString}, state.CompNE},
	common.Selector("GT(string,int256)"):    {"GT", []ArgType{TString, TInt256}, state.CompGT},
	common.Selector("GE(string,int256)"):    {"GE", []ArgType{TString, TInt256}, state.CompGE},
	common.Selector("LT(string,int256)"):    {"LT", []ArgType{TString, TInt256}, state.CompLT},
	common.Selector("LE(string,int256)"):    {"LE", []ArgType{TString, TInt256}, state.CompLE},
}

var limitSelector = common.Selector("limit(int256,int256)")

// ConditionService wraps a *state.Condition as a mutable registry Object,
// built up triple-by-triple across repeated calls to the same identity
// before being handed to Table.Select (spec.md §4.4).
type ConditionService struct {
	cond *state.Condition
}

// NewConditionService returns a fresh, empty condition wrapper — the
// result of a Table.NewCondition() call.
func NewConditionService() *ConditionService {
	return &ConditionService{cond: state.NewCondition()}
}

func (s *ConditionService) Kind() Kind              { return KindCondition }
func (s *ConditionService) Condition() *state.Condition { return s.cond }

func (s *ConditionService) Call(args CallArgs) (CallResult, error) {
	if args.Selector == limitSelector {
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TInt256, TInt256}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		offset, _ := strconv.Atoi(decoded[0])
		limit, _ := strconv.Atoi(decoded[1])
		s.cond.Page(offset, limit)
		return CallResult{}, nil
	}

	sig, ok := conditionSignatures[args.Selector]
	if !ok {
		return CallResult{}, ErrConditionOpUndefined
	}
	decoded, err := DecodeArgs(args.VMKind, sig.types, args.Rest)
	if err != nil {
		return CallResult{}, err
	}
	s.cond.And(decoded[0], sig.cmp, decoded[1])
	return CallResult{}, nil
}
