package precompiled

import (
	"context"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// tableSelectors mirrors TablePrecompiled
// (original_source/libprecompiled/TablePrecompiled.cpp): every CRUD
// operation takes the registry address of an Entry or Condition object
// previously allocated via newEntry()/newCondition(), rather than an
// inline encoded value.
var (
	selectSelector     = common.Selector("select(address)")
	insertSelector     = common.Selector("insert(address)")
	updateSelector     = common.Selector("update(address,address)")
	removeSelector     = common.Selector("remove(address)")
	newEntrySelector   = common.Selector("newEntry()")
	newConditionSelector = common.Selector("newCondition()")
)

// Authorizer is the subset of the Host State Facade the table service needs
// for permission checks (spec.md §4.4/§9).
type Authorizer interface {
	CheckAuthority(ctx context.Context, origin, caller common.Identity) bool
}

// StateLayer is the subset of *state.Layer the table service operates
// against.
type StateLayer interface {
	GetRow(ctx context.Context, table, key string) (*state.Entry, error)
	SetRow(ctx context.Context, table, key string, entry *state.Entry) error
	GetPrimaryKeys(ctx context.Context, table string, keyCond *state.Condition) ([]string, error)
}

// TableService is a CRUD-over-table precompile bound to one table, the
// equivalent of a TablePrecompiled instance (spec.md §4.4, component F).
// Entry/Condition arguments arrive as registry addresses; TableService
// resolves them through its Registry before touching the state layer.
type TableService struct {
	reg      *Registry
	layer    StateLayer
	auth     Authorizer
	table    *state.Table
	ctx      context.Context
}

// NewTableService binds a table and its owning registry/layer/authorizer.
func NewTableService(reg *Registry, layer StateLayer, auth Authorizer, table *state.Table) *TableService {
	return &TableService{reg: reg, layer: layer, auth: auth, table: table}
}

func (s *TableService) Kind() Kind { return KindTable }

func (s *TableService) resolveEntry(id common.Identity) (*EntryService, error) {
	obj, ok := s.reg.Lookup(id)
	if !ok {
		return nil, ErrParseEntry
	}
	es, ok := obj.(*EntryService)
	if !ok {
		return nil, ErrParseEntry
	}
	return es, nil
}

func (s *TableService) resolveCondition(id common.Identity) (*ConditionService, error) {
	obj, ok := s.reg.Lookup(id)
	if !ok {
		return nil, ErrParseCondition
	}
	cs, ok := obj.(*ConditionService)
	if !ok {
		return nil, ErrParseCondition
	}
	return cs, nil
}

func validateLengths(e *state.Entry, key string) error {
	if len(key) > UserTableKeyValueMaxLength {
		return ErrTableKeyValueOverflow
	}
	for _, v := range e.Fields() {
		if len(v) > UserTableFieldValueMaxLength {
			return ErrTableKeyValueOverflow
		}
	}
	return nil
}

func (s *TableService) Call(args CallArgs) (CallResult, error) {
	ctx := args.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch args.Selector {
	case newEntrySelector:
		id := s.reg.RegisterTransient(NewEntryService(s.table.Schema))
		return CallResult{Values: []string{string(id)}}, nil

	case newConditionSelector:
		id := s.reg.RegisterTransient(NewConditionService())
		return CallResult{Values: []string{string(id)}}, nil

	case selectSelector:
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TAddress}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		cs, err := s.resolveCondition(common.Identity(decoded[0]))
		if err != nil {
			return CallResult{}, err
		}
		rows, err := s.selectRows(ctx, cs.Condition())
		if err != nil {
			return CallResult{}, err
		}
		id := s.reg.RegisterTransient(NewEntriesService(s.reg, rows))
		return CallResult{Values: []string{string(id)}}, nil

	case insertSelector:
		if !s.auth.CheckAuthority(ctx, args.Origin, args.Caller) {
			return CallResult{}, ErrPermissionDenied
		}
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TAddress}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		es, err := s.resolveEntry(common.Identity(decoded[0]))
		if err != nil {
			return CallResult{}, err
		}
		key, ok := es.Entry().GetField(s.table.Schema.KeyField)
		if !ok {
			return CallResult{}, ErrKeyNotInEntry
		}
		if err := validateLengths(es.Entry(), key); err != nil {
			return CallResult{}, err
		}
		existing, err := s.layer.GetRow(ctx, s.table.Name, key)
		if err != nil {
			return CallResult{}, err
		}
		if existing != nil && existing.Status() != state.StatusDeleted && existing.Status() != state.StatusPurged {
			return CallResult{}, ErrInsertKeyExists
		}
		if err := s.layer.SetRow(ctx, s.table.Name, key, es.Entry()); err != nil {
			return CallResult{}, err
		}
		return CallResult{Values: []string{"1"}}, nil

	case updateSelector:
		if !s.auth.CheckAuthority(ctx, args.Origin, args.Caller) {
			return CallResult{}, ErrPermissionDenied
		}
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TAddress, TAddress}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		cs, err := s.resolveCondition(common.Identity(decoded[0]))
		if err != nil {
			return CallResult{}, err
		}
		es, err := s.resolveEntry(common.Identity(decoded[1]))
		if err != nil {
			return CallResult{}, err
		}
		cond := cs.Condition()
		if err := s.checkKeyExistence(ctx, cond); err != nil {
			return CallResult{}, err
		}
		keys, err := s.matchingKeys(ctx, cond)
		if err != nil {
			return CallResult{}, err
		}
		updated := 0
		for _, key := range keys {
			current, err := s.layer.GetRow(ctx, s.table.Name, key)
			if err != nil {
				return CallResult{}, err
			}
			if current == nil {
				continue
			}
			merged := current.Clone()
			for field, value := range es.Entry().Fields() {
				if err := merged.SetField(field, value); err != nil {
					return CallResult{}, err
				}
			}
			if err := validateLengths(merged, key); err != nil {
				return CallResult{}, err
			}
			if err := s.layer.SetRow(ctx, s.table.Name, key, merged); err != nil {
				return CallResult{}, err
			}
			updated++
		}
		return CallResult{Values: []string{itoa(updated)}}, nil

	case removeSelector:
		if !s.auth.CheckAuthority(ctx, args.Origin, args.Caller) {
			return CallResult{}, ErrPermissionDenied
		}
		decoded, err := DecodeArgs(args.VMKind, []ArgType{TAddress}, args.Rest)
		if err != nil {
			return CallResult{}, err
		}
		cs, err := s.resolveCondition(common.Identity(decoded[0]))
		if err != nil {
			return CallResult{}, err
		}
		cond := cs.Condition()
		if !referencesField(cond, s.table.Schema.KeyField) {
			return CallResult{}, ErrKeyNotInCondition
		}
		keys, err := s.matchingKeys(ctx, cond)
		if err != nil {
			return CallResult{}, err
		}
		removed := 0
		for _, key := range keys {
			if err := s.layer.SetRow(ctx, s.table.Name, key, state.NewDeletedEntry(s.table.Schema)); err != nil {
				return CallResult{}, err
			}
			removed++
		}
		return CallResult{Values: []string{itoa(removed)}}, nil

	default:
		return CallResult{}, ErrUnknownFunctionSelector
	}
}

// referencesField reports whether cond carries at least one triple on
// field, the original's findKeyFlag check (TablePrecompiled.cpp). This is
// distinct from Condition.KeyOnly, which requires every triple to target
// field rather than just one.
func referencesField(cond *state.Condition, field string) bool {
	for _, tr := range cond.Triples {
		if tr.Field == field {
			return true
		}
	}
	return false
}

// checkKeyExistence implements TablePrecompiled's UPDATE pre-check
// (original_source/src/precompiled/TablePrecompiled.cpp: findKeyFlag then
// eqKeyExist): the condition must reference the key field at all, and
// every EQ-literal key it names must already have a row, independent of
// whether that row also satisfies the condition's non-key fields.
func (s *TableService) checkKeyExistence(ctx context.Context, cond *state.Condition) error {
	keyField := s.table.Schema.KeyField
	if !referencesField(cond, keyField) {
		return ErrKeyNotInCondition
	}
	for _, key := range cond.EQLiterals(keyField) {
		row, err := s.layer.GetRow(ctx, s.table.Name, key)
		if err != nil {
			return err
		}
		if row == nil || row.Status() == state.StatusDeleted || row.Status() == state.StatusPurged {
			return ErrUpdateKeyNotExist
		}
	}
	return nil
}

func (s *TableService) matchingKeys(ctx context.Context, cond *state.Condition) ([]string, error) {
	keyField := s.table.Schema.KeyField
	keyCond := state.NewCondition()
	for _, tr := range cond.Triples {
		if tr.Field == keyField || tr.Field == "" {
			keyCond.And("", tr.Comparator, tr.Literal)
		}
	}
	keys, err := s.layer.GetPrimaryKeys(ctx, s.table.Name, keyCond)
	if err != nil {
		return nil, err
	}
	// When every triple targets the key field, keyCond already equals cond
	// and GetPrimaryKeys' string filtering is the full match; skip the
	// redundant per-row re-check.
	keyOnly := len(cond.Triples) > 0 && cond.KeyOnly(keyField)
	var out []string
	for _, k := range keys {
		e, err := s.layer.GetRow(ctx, s.table.Name, k)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if !keyOnly && !cond.Match(k, e) {
			continue
		}
		out = append(out, k)
	}
	if cond.Limit > 0 {
		lo := cond.Offset
		if lo > len(out) {
			lo = len(out)
		}
		hi := lo + cond.Limit
		if hi > len(out) {
			hi = len(out)
		}
		out = out[lo:hi]
	}
	return out, nil
}

func (s *TableService) selectRows(ctx context.Context, cond *state.Condition) ([]*state.Entry, error) {
	keys, err := s.matchingKeys(ctx, cond)
	if err != nil {
		return nil, err
	}
	rows := make([]*state.Entry, 0, len(keys))
	for _, k := range keys {
		e, err := s.layer.GetRow(ctx, s.table.Name, k)
		if err != nil {
			return nil, err
		}
		if e != nil {
			rows = append(rows, e)
		}
	}
	return rows, nil
}
