package facade

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

func newFacade(t *testing.T) (*Facade, *state.Layer) {
	t.Helper()
	backend := state.NewMemoryBackend()
	layer := state.NewLayer(backend, false)
	return New(layer, NATIVE), layer
}

func TestCreateAccountInitializesSchema(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)
	addr := common.NativeIdentity(common.HexToAddress("0x01"))

	require.NoError(t, f.CreateAccount(ctx, addr, uint256.NewInt(0), uint256.NewInt(1000)))

	bal, err := f.Balance(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1000), bal)

	hash, err := f.CodeHash(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, common.EmptyCodeHash, hash)
}

func TestCodeHashDefaultsForNeverUsedAccount(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)
	addr := common.NativeIdentity(common.HexToAddress("0x99"))
	hash, err := f.CodeHash(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, common.EmptyCodeHash, hash)
}

func TestSubBalanceNotEnoughCash(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)
	addr := common.NativeIdentity(common.HexToAddress("0x01"))

	err := f.SubBalance(ctx, addr, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrNotEnoughCash)

	require.NoError(t, f.CreateAccount(ctx, addr, uint256.NewInt(0), uint256.NewInt(10)))
	err = f.SubBalance(ctx, addr, uint256.NewInt(11))
	require.ErrorIs(t, err, ErrNotEnoughCash)
}

func TestTransferBalanceRevertsOnSavepoint(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)
	alice := common.NativeIdentity(common.HexToAddress("0x01"))
	bob := common.NativeIdentity(common.HexToAddress("0x02"))

	require.NoError(t, f.CreateAccount(ctx, alice, uint256.NewInt(0), uint256.NewInt(100)))
	require.NoError(t, f.CreateAccount(ctx, bob, uint256.NewInt(0), uint256.NewInt(0)))

	sp := f.Savepoint()
	require.NoError(t, f.TransferBalance(ctx, alice, bob, uint256.NewInt(40)))

	require.NoError(t, f.Rollback(sp))

	aliceBal, _ := f.Balance(ctx, alice)
	bobBal, _ := f.Balance(ctx, bob)
	require.Equal(t, uint256.NewInt(100), aliceBal)
	require.Equal(t, uint256.NewInt(0), bobBal)
}

func TestKillLeavesTablePresent(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)
	addr := common.NativeIdentity(common.HexToAddress("0x01"))
	require.NoError(t, f.CreateAccount(ctx, addr, uint256.NewInt(0), uint256.NewInt(5)))
	require.NoError(t, f.Kill(ctx, addr))

	require.True(t, f.AddressInUse(ctx, addr))
	alive, _, err := f.getRow(ctx, addr, state.AccountRowAlive)
	require.NoError(t, err)
	require.Equal(t, "false", alive)
	bal, _ := f.Balance(ctx, addr)
	require.True(t, bal.IsZero())
}
