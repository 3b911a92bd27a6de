package precompiled

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

func TestNativeCodecRoundTripsStaticAndDynamic(t *testing.T) {
	types := []ArgType{TAddress, TUint256, TString}
	vals := []string{"0x0000000000000000000000000000000000000001", "12345", "hello world"}

	encoded, err := EncodeArgs(facade.NATIVE, types, vals)
	require.NoError(t, err)

	decoded, err := DecodeArgs(facade.NATIVE, types, encoded)
	require.NoError(t, err)
	require.Equal(t, vals, decoded)
}

func TestLinearCodecRoundTrips(t *testing.T) {
	vals := []string{"fruit", "1", "apple"}
	encoded, err := EncodeArgs(facade.LINEAR, nil, vals)
	require.NoError(t, err)

	decoded, err := DecodeArgs(facade.LINEAR, make([]ArgType, len(vals)), encoded)
	require.NoError(t, err)
	require.Equal(t, vals, decoded)
}

func TestDecodeInputSplitsSelector(t *testing.T) {
	input := append([]byte{0xAA, 0xBB, 0xCC, 0xDD}, []byte("rest")...)
	sel, rest, err := DecodeInput(input)
	require.NoError(t, err)
	require.Equal(t, [4]byte{0xAA, 0xBB, 0xCC, 0xDD}, sel)
	require.Equal(t, "rest", string(rest))
}

func TestDecodeInputRejectsShortInput(t *testing.T) {
	_, _, err := DecodeInput([]byte{1, 2})
	require.Error(t, err)
}
