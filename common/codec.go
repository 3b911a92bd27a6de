package common

import (
	"fmt"

	"github.com/holiman/uint256"
)

// EncodeDecimal renders v as the ASCII-decimal string the account schema
// requires for integer fields (balance, nonce) — spec.md §6 "integer values
// encoded as ASCII decimal".
func EncodeDecimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// DecodeDecimal parses an ASCII-decimal field back into a uint256, the
// inverse of EncodeDecimal. Property-tested per spec.md §9 across
// {0, 1, 2^63-1, 2^64-1, 2^256-1}.
func DecodeDecimal(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("common: decimal value %q: %w", s, err)
	}
	return v, nil
}
