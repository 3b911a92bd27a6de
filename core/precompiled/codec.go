package precompiled

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
)

// ArgType describes one positional argument's wire representation for the
// NATIVE (ABI-style) codec. Every argument, regardless of kind, is handed
// to Go call sites as a decimal/hex/plain string — only the wire packing
// differs between VM kinds (spec.md §4.4).
type ArgType int

const (
	TString ArgType = iota
	TAddress
	TInt256
	TUint256
	TBytes
)

const wordSize = 32

// DecodeInput splits a precompiled call's input into its 4-byte selector
// and argument words/stream; the split is the same for both VM kinds.
func DecodeInput(input []byte) (selector [4]byte, rest []byte, err error) {
	if len(input) < 4 {
		return selector, nil, fmt.Errorf("precompiled: input shorter than a selector")
	}
	copy(selector[:], input[:4])
	return selector, input[4:], nil
}

// DecodeArgs decodes rest into string-form arguments per types, using the
// ABI-like head/tail scheme for NATIVE and the length-prefixed stream for
// LINEAR (spec.md §4.4).
func DecodeArgs(vmKind facade.VMKind, types []ArgType, rest []byte) ([]string, error) {
	if vmKind == facade.LINEAR {
		return decodeLinear(rest, len(types))
	}
	return decodeNative(types, rest)
}

// EncodeArgs is the inverse of DecodeArgs, used by callers constructing a
// precompiled call (in this module, the package's own tests).
func EncodeArgs(vmKind facade.VMKind, types []ArgType, vals []string) ([]byte, error) {
	if vmKind == facade.LINEAR {
		return encodeLinear(vals), nil
	}
	return encodeNative(types, vals)
}

// --- LINEAR: length-prefixed parameter stream ---

func encodeLinear(vals []string) []byte {
	var out []byte
	for _, v := range vals {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		out = append(out, lenBuf[:]...)
		out = append(out, v...)
	}
	return out
}

func decodeLinear(data []byte, want int) ([]string, error) {
	var out []string
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("precompiled: truncated length-prefixed stream")
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, fmt.Errorf("precompiled: truncated length-prefixed value")
		}
		out = append(out, string(data[:n]))
		data = data[n:]
	}
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("precompiled: expected %d arguments, got %d", want, len(out))
	}
	return out, nil
}

// --- NATIVE: simplified Solidity-style ABI (static head words + dynamic tail) ---

func isDynamic(t ArgType) bool { return t == TString || t == TBytes }

func encodeNative(types []ArgType, vals []string) ([]byte, error) {
	if len(types) != len(vals) {
		return nil, fmt.Errorf("precompiled: %d types for %d values", len(types), len(vals))
	}
	head := make([]byte, len(types)*wordSize)
	var tail []byte
	for i, t := range types {
		if isDynamic(t) {
			offset := len(types)*wordSize + len(tail)
			binary.BigEndian.PutUint64(head[i*wordSize+24:i*wordSize+32], uint64(offset))
			tail = append(tail, encodeDynamic(vals[i])...)
			continue
		}
		w, err := encodeStaticWord(t, vals[i])
		if err != nil {
			return nil, err
		}
		copy(head[i*wordSize:(i+1)*wordSize], w)
	}
	return append(head, tail...), nil
}

func encodeDynamic(v string) []byte {
	raw := []byte(v)
	var lenWord [wordSize]byte
	binary.BigEndian.PutUint64(lenWord[24:], uint64(len(raw)))
	padded := make([]byte, (len(raw)+wordSize-1)/wordSize*wordSize)
	copy(padded, raw)
	return append(lenWord[:], padded...)
}

func encodeStaticWord(t ArgType, v string) ([]byte, error) {
	word := make([]byte, wordSize)
	switch t {
	case TAddress:
		copy(word[wordSize-common.AddressLength:], common.FromHex(v))
	case TInt256, TUint256:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("precompiled: invalid integer literal %q", v)
		}
		b := n.Bytes()
		copy(word[wordSize-len(b):], b)
	default:
		return nil, fmt.Errorf("precompiled: %d is not a static type", t)
	}
	return word, nil
}

func decodeNative(types []ArgType, data []byte) ([]string, error) {
	out := make([]string, len(types))
	for i, t := range types {
		if i*wordSize+wordSize > len(data) {
			return nil, fmt.Errorf("precompiled: truncated ABI head at arg %d", i)
		}
		word := data[i*wordSize : (i+1)*wordSize]
		if isDynamic(t) {
			offset := binary.BigEndian.Uint64(word[24:])
			if int(offset)+wordSize > len(data) {
				return nil, fmt.Errorf("precompiled: dynamic offset out of range at arg %d", i)
			}
			length := binary.BigEndian.Uint64(data[offset+24 : offset+wordSize])
			start := int(offset) + wordSize
			if start+int(length) > len(data) {
				return nil, fmt.Errorf("precompiled: dynamic length out of range at arg %d", i)
			}
			out[i] = string(data[start : start+int(length)])
			continue
		}
		switch t {
		case TAddress:
			out[i] = common.BytesToAddress(word).Hex()
		case TInt256, TUint256:
			out[i] = new(big.Int).SetBytes(word).String()
		}
	}
	return out, nil
}
