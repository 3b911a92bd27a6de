package precompiled

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/common"
)

func TestEcRecoverFixture(t *testing.T) {
	input := common.Hex2Bytes("38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e000000000000000000000000000000000000000000000000000000000000001b38d18acb67d25c8bb9942764b62f18e17054f66a817bd4295423adf9ed98873e789d1dd423d25f0772d2748d60f7e4b81bb14d086eba8e8e8efb6dcff8a4ae02")
	out, err := ecRecoverRun(input)
	require.NoError(t, err)
	require.Equal(t, "000000000000000000000000ceaccac640adf55b2028469bd36ba501f28b699d", common.Bytes2Hex(out))
}

func TestSha256Fixture(t *testing.T) {
	out, err := sha256Run([]byte("hello"))
	require.NoError(t, err)
	require.Len(t, out, 32)
}

func TestIdentityReturnsInputVerbatim(t *testing.T) {
	out, err := identityRun([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, out)
}

func TestRipemd160OutputIsRightAligned(t *testing.T) {
	out, err := ripemd160Run([]byte("hello"))
	require.NoError(t, err)
	require.Len(t, out, 32)
	require.True(t, out[0] == 0)
}

func TestModexpZeroModulusReturnsEmpty(t *testing.T) {
	input := make([]byte, 96)
	out, err := modexpRun(input)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestModexpSimple(t *testing.T) {
	input := make([]byte, 0, 99)
	input = append(input, leftPad32(1)...) // baseLen
	input = append(input, leftPad32(1)...) // expLen
	input = append(input, leftPad32(1)...) // modLen
	input = append(input, 3)               // base = 3
	input = append(input, 2)               // exp = 2
	input = append(input, 5)               // mod = 5
	out, err := modexpRun(input)
	require.NoError(t, err)
	require.Equal(t, []byte{4}, out) // 3^2 mod 5 == 4
}

func leftPad32(n byte) []byte {
	b := make([]byte, 32)
	b[31] = n
	return b
}

func TestBlake2FRejectsBadInputLength(t *testing.T) {
	_, err := blake2FRun([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestBn254AddIdentity(t *testing.T) {
	// (0,0) + (0,0) on the curve's "point at infinity" encoding used by the
	// precompile: adding the zero point to itself yields the zero point.
	input := make([]byte, 128)
	out, err := bn254AddRun(input)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 64), out)
}
