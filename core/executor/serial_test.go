package executor

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/blockctx"
	"github.com/morebtcg/bcos-executor-sub001/core/executive"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
	"github.com/morebtcg/bcos-executor-sub001/core/precompiled"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

func newTestBlock(t *testing.T) (*blockctx.Context, *facade.Facade) {
	t.Helper()
	backend := state.NewMemoryBackend()
	layer := state.NewLayer(backend, false)
	f := facade.New(layer, facade.NATIVE)
	reg := precompiled.NewRegistry(facade.NATIVE)
	precompiled.RegisterBuiltins(reg)
	block := blockctx.New(blockctx.Header{Number: big.NewInt(1)}, facade.NATIVE, f, reg, nil)
	return block, f
}

func TestSerialExecutorRunsTransactionsInInputOrder(t *testing.T) {
	block, f := newTestBlock(t)
	ctx := context.Background()

	alice := common.NativeIdentity(common.BytesToAddress([]byte{0xA1}))
	bob := common.NativeIdentity(common.BytesToAddress([]byte{0xB2}))
	require.NoError(t, f.SetBalance(ctx, alice, uint256.NewInt(1000)))

	exec := NewSerialExecutor(block, executive.DefaultPricer)
	txs := []Transaction{
		{Hash: common.Hash{1}, From: alice, To: bob, Value: uint256.NewInt(100), GasLimit: 100_000},
		{Hash: common.Hash{2}, From: alice, To: bob, Value: uint256.NewInt(50), GasLimit: 100_000},
	}
	receipts := exec.ExecuteBlock(ctx, txs)
	require.Len(t, receipts, 2)
	require.Equal(t, common.Hash{1}, receipts[0].TxHash)
	require.Equal(t, common.Hash{2}, receipts[1].TxHash)

	bal, err := f.Balance(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(150), bal)

	aliceBal, err := f.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(850), aliceBal)
}

func TestSerialExecutorInsufficientBalanceReverts(t *testing.T) {
	block, _ := newTestBlock(t)
	ctx := context.Background()

	alice := common.NativeIdentity(common.BytesToAddress([]byte{0xA3}))
	bob := common.NativeIdentity(common.BytesToAddress([]byte{0xB4}))

	exec := NewSerialExecutor(block, executive.DefaultPricer)
	receipts := exec.ExecuteBlock(ctx, []Transaction{
		{Hash: common.Hash{3}, From: alice, To: bob, Value: uint256.NewInt(1), GasLimit: 100_000},
	})
	require.Len(t, receipts, 1)
	require.Equal(t, executive.StatusRevert, receipts[0].Status)
}
