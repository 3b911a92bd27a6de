// Package common holds the address/hash primitives shared across the
// executor: the 20-byte NATIVE address space, the path-addressed LINEAR
// space, and the Keccak256 hash primitive used for state hashing, contract
// address derivation and function-selector computation.
package common

import (
	"encoding/hex"
	"hash"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the width of a NATIVE-space account address.
const AddressLength = 20

// HashLength is the width of a state/trie-independent digest.
const HashLength = 32

// Address is a 20-byte account identifier used when the block's VM-kind is
// NATIVE.
type Address [AddressLength]byte

// Hash is a 32-byte digest.
type Hash [HashLength]byte

// BytesToAddress left-truncates/left-pads b into an Address the same way
// the teacher's common.BytesToAddress does: if b is longer than
// AddressLength, only the trailing AddressLength bytes are kept.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a hex string (with or without 0x prefix) into an
// Address.
func HexToAddress(s string) Address {
	return BytesToAddress(FromHex(s))
}

// Bytes returns the raw bytes of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the lowercase-hex encoding used as the registry identity for
// NATIVE-space contracts (spec.md §3 "Address / Path").
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the all-zero sentinel.
func (a Address) IsZero() bool { return a == Address{} }

// BigToAddress interprets b as the big-endian bytes of an address.
func BigToAddress(b *big.Int) Address { return BytesToAddress(b.Bytes()) }

// BytesToHash right-aligns b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte { return h[:] }
func (h Hash) Hex() string   { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) IsZero() bool   { return h == Hash{} }

// BigToHash interprets b as the big-endian bytes of a hash.
func BigToHash(b *big.Int) Hash { return BytesToHash(b.Bytes()) }

// FromHex decodes a hex string tolerating an optional 0x/0X prefix.
func FromHex(s string) []byte {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Hex2Bytes is an alias kept for parity with the teacher's common package
// naming, used pervasively by the precompiled-contract test vectors.
func Hex2Bytes(s string) []byte { return FromHex(s) }

// Bytes2Hex encodes b without a 0x prefix, matching the teacher's
// common.Bytes2Hex used by precompiled-contract test vectors.
func Bytes2Hex(b []byte) string { return hex.EncodeToString(b) }

// Keccak256 is the "configured hash primitive" referenced throughout
// spec.md §6/§8: state hashing, contract-address derivation and
// function-selector computation all fold through it.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hash is Keccak256 wrapped into a Hash.
func Keccak256Hash(data ...[]byte) Hash {
	return BytesToHash(Keccak256(data...))
}

// Keccak256Hasher returns a fresh streaming Keccak256 hash.Hash, for
// callers folding many field writes into one digest (e.g. State.Hash()).
func Keccak256Hasher() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// Selector returns the 4-byte big-endian function selector for signature,
// the first 4 bytes of Keccak256(signature) (spec.md §6).
func Selector(signature string) [4]byte {
	digest := Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], digest[:4])
	return sel
}

// EmptyCodeHash is the hash of the empty byte string, the sentinel
// `code_hash` value for never-used accounts (spec.md §4.3).
var EmptyCodeHash = Keccak256Hash(nil)

// EmptyHash is the zero digest used where no contract has been created.
var EmptyHash = Hash{}

// PaddedTo32 left-pads b to 32 bytes, used for ecRecover/ripemd160-style
// output formatting (spec.md §6).
func PaddedTo32(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// Identity is the "String" that addresses a precompiled object: either a
// lowercase-hex 20-byte NATIVE address or a LINEAR filesystem path
// (spec.md §3). Kept as a plain string newtype so map keys stay comparable
// and the VM-kind-dependent id format (§4.4) can be layered on top.
type Identity string

// NativeIdentity returns the registry identity for a NATIVE address.
func NativeIdentity(a Address) Identity { return Identity(a.Hex()) }

// PathIdentity returns the registry identity for a LINEAR path.
func PathIdentity(path string) Identity {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Identity(path)
}

func (id Identity) String() string { return string(id) }

// IsPath reports whether id looks like a filesystem path rather than a
// hex address.
func (id Identity) IsPath() bool { return strings.HasPrefix(string(id), "/") }
