package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

func TestConflictKeysUndeclaredSelectorIsSerial(t *testing.T) {
	c := NewCatalog()
	tx := Transaction{To: common.NativeIdentity(common.BytesToAddress([]byte{0x01}))}

	keys, serial := c.ConflictKeys(facade.NATIVE, tx)
	require.True(t, serial)
	require.Nil(t, keys)
}

func TestConflictKeysAllKindForcesSerial(t *testing.T) {
	c := NewCatalog()
	to := common.NativeIdentity(common.BytesToAddress([]byte{0x02}))
	sel := Selector{Contract: to, Method: [4]byte{0xAA, 0xBB, 0xCC, 0xDD}}
	c.Declare(sel, ConflictField{Kind: ConflictAll})

	tx := Transaction{To: to, Selector: sel.Method}
	_, serial := c.ConflictKeys(facade.NATIVE, tx)
	require.True(t, serial)
}

func TestConflictKeysEnvFieldsEvaluateToAccountTables(t *testing.T) {
	c := NewCatalog()
	to := common.NativeIdentity(common.BytesToAddress([]byte{0x03}))
	sel := Selector{Contract: to, Method: [4]byte{1, 2, 3, 4}}
	c.Declare(sel, ConflictField{Kind: ConflictEnv, EnvField: "from"}, ConflictField{Kind: ConflictEnv, EnvField: "to"})

	from := common.NativeIdentity(common.BytesToAddress([]byte{0x04}))
	tx := Transaction{From: from, To: to, Selector: sel.Method}

	keys, serial := c.ConflictKeys(facade.NATIVE, tx)
	require.False(t, serial)
	require.ElementsMatch(t, []string{
		facade.AccountTableName(facade.NATIVE, from),
		facade.AccountTableName(facade.NATIVE, to),
	}, keys)
}

func TestConflictKeysVarFieldReadsArgument(t *testing.T) {
	c := NewCatalog()
	to := common.NativeIdentity(common.BytesToAddress([]byte{0x05}))
	sel := Selector{Contract: to, Method: [4]byte{5, 6, 7, 8}}
	c.Declare(sel, ConflictField{Kind: ConflictVar, ArgIndex: 0})

	target := common.NativeIdentity(common.BytesToAddress([]byte{0x06}))
	tx := Transaction{To: to, Selector: sel.Method, Args: []string{string(target)}}

	keys, serial := c.ConflictKeys(facade.NATIVE, tx)
	require.False(t, serial)
	require.Equal(t, []string{facade.AccountTableName(facade.NATIVE, target)}, keys)
}

func TestConflictKeysLenFieldIsDistinctFromVar(t *testing.T) {
	c := NewCatalog()
	to := common.NativeIdentity(common.BytesToAddress([]byte{0x07}))
	sel := Selector{Contract: to, Method: [4]byte{9, 10, 11, 12}}
	c.Declare(sel, ConflictField{Kind: ConflictLen, ArgIndex: 0})

	tx := Transaction{To: to, Selector: sel.Method, Args: []string{"hello"}}
	keys, serial := c.ConflictKeys(facade.NATIVE, tx)
	require.False(t, serial)
	require.Equal(t, []string{"len:0:5"}, keys)
}

func TestConflictKeysOutOfRangeArgIndexIsSkipped(t *testing.T) {
	c := NewCatalog()
	to := common.NativeIdentity(common.BytesToAddress([]byte{0x08}))
	sel := Selector{Contract: to, Method: [4]byte{13, 14, 15, 16}}
	c.Declare(sel, ConflictField{Kind: ConflictVar, ArgIndex: 5})

	tx := Transaction{To: to, Selector: sel.Method, Args: []string{"only one"}}
	keys, serial := c.ConflictKeys(facade.NATIVE, tx)
	require.False(t, serial)
	require.Empty(t, keys)
}
