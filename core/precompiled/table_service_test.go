package precompiled

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CheckAuthority(ctx context.Context, origin, caller common.Identity) bool {
	return true
}

var crudTestSchema = state.Schema{KeyField: "name", ValueFields: []string{"name", "item_id", "item_name"}}

func newTableServiceFixture(t *testing.T) (*Registry, *state.Layer, *TableService) {
	t.Helper()
	backend := state.NewMemoryBackend()
	layer := state.NewLayer(backend, false)
	table, err := layer.CreateTable("t_test", crudTestSchema)
	require.NoError(t, err)
	reg := NewRegistry(facade.NATIVE)
	svc := NewTableService(reg, layer, allowAllAuthorizer{}, table)
	reg.Register(common.NativeIdentity(common.HexToAddress("0x1000")), svc)
	return reg, layer, svc
}

func call(t *testing.T, svc Precompiled, sig string, args CallArgs) CallResult {
	t.Helper()
	args.Selector = common.Selector(sig)
	res, err := svc.Call(args)
	require.NoError(t, err)
	return res
}

// TestCRUDTableLifecycle exercises spec scenario 4 end to end: insert,
// select, update, select, remove, select.
func TestCRUDTableLifecycle(t *testing.T) {
	ctx := context.Background()
	reg, _, table := newTableServiceFixture(t)

	newEntryRes := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	entryID := common.Identity(newEntryRes.Values[0])
	entryObj, ok := reg.Lookup(entryID)
	require.True(t, ok)
	es := entryObj.(*EntryService)
	require.NoError(t, es.Entry().SetField("name", "fruit"))
	require.NoError(t, es.Entry().SetField("item_id", "1"))
	require.NoError(t, es.Entry().SetField("item_name", "apple"))

	insertRest, err := EncodeArgs(facade.NATIVE, []ArgType{TAddress}, []string{string(entryID)})
	require.NoError(t, err)
	_, err = table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("insert(address)"), Rest: insertRest})
	require.NoError(t, err)

	// select where name == fruit AND item_id == 1
	condRes := call(t, table, "newCondition()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	condID := common.Identity(condRes.Values[0])
	condObj, _ := reg.Lookup(condID)
	cs := condObj.(*ConditionService)
	cs.Condition().And("name", state.CompEQ, "fruit")
	cs.Condition().And("item_id", state.CompEQ, "1")

	selectRest, err := EncodeArgs(facade.NATIVE, []ArgType{TAddress}, []string{string(condID)})
	require.NoError(t, err)
	selRes, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("select(address)"), Rest: selectRest})
	require.NoError(t, err)
	entriesObj, _ := reg.Lookup(common.Identity(selRes.Values[0]))
	entries := entriesObj.(*EntriesService)
	require.Equal(t, 1, entries.Len())

	// update item_name to "orange" where name == fruit
	updateEntryRes := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	updEntryID := common.Identity(updateEntryRes.Values[0])
	updEntryObj, _ := reg.Lookup(updEntryID)
	require.NoError(t, updEntryObj.(*EntryService).Entry().SetField("item_name", "orange"))

	updCondRes := call(t, table, "newCondition()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	updCondID := common.Identity(updCondRes.Values[0])
	updCondObj, _ := reg.Lookup(updCondID)
	updCondObj.(*ConditionService).Condition().And("name", state.CompEQ, "fruit")

	updateRest, err := EncodeArgs(facade.NATIVE, []ArgType{TAddress, TAddress}, []string{string(updCondID), string(updEntryID)})
	require.NoError(t, err)
	_, err = table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("update(address,address)"), Rest: updateRest})
	require.NoError(t, err)

	// select again: item_name should now be "orange"
	selRes2, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("select(address)"), Rest: selectRest})
	require.NoError(t, err)
	entriesObj2, _ := reg.Lookup(common.Identity(selRes2.Values[0]))
	entries2 := entriesObj2.(*EntriesService)
	require.Equal(t, 1, entries2.Len())
	getRes, err := entries2.Call(CallArgs{VMKind: facade.NATIVE, Selector: common.Selector("get(int256)"), Rest: mustEncode(t, []ArgType{TInt256}, []string{"0"})})
	require.NoError(t, err)
	rowObj, _ := reg.Lookup(common.Identity(getRes.Values[0]))
	v, _ := rowObj.(*EntryService).Entry().GetField("item_name")
	require.Equal(t, "orange", v)

	// remove where name == fruit AND item_id == 1
	_, err = table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("remove(address)"), Rest: selectRest})
	require.NoError(t, err)

	selRes3, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("select(address)"), Rest: selectRest})
	require.NoError(t, err)
	entriesObj3, _ := reg.Lookup(common.Identity(selRes3.Values[0]))
	require.Equal(t, 0, entriesObj3.(*EntriesService).Len())
}

func mustEncode(t *testing.T, types []ArgType, vals []string) []byte {
	t.Helper()
	b, err := EncodeArgs(facade.NATIVE, types, vals)
	require.NoError(t, err)
	return b
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	ctx := context.Background()
	reg, _, table := newTableServiceFixture(t)

	mkEntry := func(name, id, item string) common.Identity {
		res := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
		id2 := common.Identity(res.Values[0])
		obj, _ := reg.Lookup(id2)
		es := obj.(*EntryService)
		require.NoError(t, es.Entry().SetField("name", name))
		require.NoError(t, es.Entry().SetField("item_id", id))
		require.NoError(t, es.Entry().SetField("item_name", item))
		return id2
	}

	e1 := mkEntry("fruit", "1", "apple")
	rest, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress}, []string{string(e1)})
	_, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("insert(address)"), Rest: rest})
	require.NoError(t, err)

	e2 := mkEntry("fruit", "2", "banana")
	rest2, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress}, []string{string(e2)})
	_, err = table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("insert(address)"), Rest: rest2})
	require.ErrorIs(t, err, ErrInsertKeyExists)
}

func TestUpdateNonexistentKeyErrors(t *testing.T) {
	ctx := context.Background()
	reg, _, table := newTableServiceFixture(t)

	condRes := call(t, table, "newCondition()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	condObj, _ := reg.Lookup(common.Identity(condRes.Values[0]))
	condObj.(*ConditionService).Condition().And("name", state.CompEQ, "nope")

	entryRes := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})

	rest, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress, TAddress}, []string{condRes.Values[0], entryRes.Values[0]})
	_, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("update(address,address)"), Rest: rest})
	require.ErrorIs(t, err, ErrUpdateKeyNotExist)
}

// TestUpdateWithoutKeyFieldErrors covers spec.md §7's KEY_NOT_IN_CONDITION:
// a condition that never mentions the table's key field at all.
func TestUpdateWithoutKeyFieldErrors(t *testing.T) {
	ctx := context.Background()
	reg, _, table := newTableServiceFixture(t)

	condRes := call(t, table, "newCondition()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	condObj, _ := reg.Lookup(common.Identity(condRes.Values[0]))
	condObj.(*ConditionService).Condition().And("item_id", state.CompEQ, "1")

	entryRes := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})

	rest, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress, TAddress}, []string{condRes.Values[0], entryRes.Values[0]})
	_, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("update(address,address)"), Rest: rest})
	require.ErrorIs(t, err, ErrKeyNotInCondition)
}

// TestRemoveWithoutKeyFieldErrors mirrors the update case for remove.
func TestRemoveWithoutKeyFieldErrors(t *testing.T) {
	ctx := context.Background()
	reg, _, table := newTableServiceFixture(t)

	condRes := call(t, table, "newCondition()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	condObj, _ := reg.Lookup(common.Identity(condRes.Values[0]))
	condObj.(*ConditionService).Condition().And("item_id", state.CompEQ, "1")

	rest, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress}, []string{condRes.Values[0]})
	_, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("remove(address)"), Rest: rest})
	require.ErrorIs(t, err, ErrKeyNotInCondition)
}

// TestUpdateKeyExistsButFieldMismatchIsSilent exercises the case the
// review flagged directly: the EQ-literal key exists, but a non-key
// field in the same AND condition does not match. The original only
// gates existence on the key field, so this must succeed with zero
// rows updated rather than returning ErrUpdateKeyNotExist.
func TestUpdateKeyExistsButFieldMismatchIsSilent(t *testing.T) {
	ctx := context.Background()
	reg, _, table := newTableServiceFixture(t)

	insertEntry := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	insObj, _ := reg.Lookup(common.Identity(insertEntry.Values[0]))
	ies := insObj.(*EntryService)
	require.NoError(t, ies.Entry().SetField("name", "fruit"))
	require.NoError(t, ies.Entry().SetField("item_id", "1"))
	require.NoError(t, ies.Entry().SetField("item_name", "apple"))
	insertRest, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress}, []string{insertEntry.Values[0]})
	_, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("insert(address)"), Rest: insertRest})
	require.NoError(t, err)

	condRes := call(t, table, "newCondition()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	condObj, _ := reg.Lookup(common.Identity(condRes.Values[0]))
	cond := condObj.(*ConditionService).Condition()
	cond.And("name", state.CompEQ, "fruit")
	cond.And("item_id", state.CompEQ, "999")

	entryRes := call(t, table, "newEntry()", CallArgs{Ctx: ctx, VMKind: facade.NATIVE})
	updateRest, _ := EncodeArgs(facade.NATIVE, []ArgType{TAddress, TAddress}, []string{condRes.Values[0], entryRes.Values[0]})
	res, err := table.Call(CallArgs{Ctx: ctx, VMKind: facade.NATIVE, Selector: common.Selector("update(address,address)"), Rest: updateRest})
	require.NoError(t, err)
	require.Equal(t, "0", res.Values[0])
}
