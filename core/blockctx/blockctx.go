// Package blockctx holds the Block Context, component G of spec.md §4: the
// per-block execution environment threaded through every transaction's
// frame — header view, VM-kind, facade/registry handles, and the
// number->hash callback used by the BLOCKHASH-equivalent host call.
package blockctx

import (
	"math/big"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
	"github.com/morebtcg/bcos-executor-sub001/core/precompiled"
)

// Header is the subset of block-header fields the executor consumes. Block
// header construction itself is out of scope (spec.md §1 non-goal); this
// is a read-only view supplied by the caller.
type Header struct {
	Number     *big.Int
	Timestamp  uint64
	Coinbase   common.Identity
	GasLimit   uint64
	ParentHash common.Hash
}

// GetHashFunc resolves a block number to its hash, the number->hash
// callback G exposes to the BLOCKHASH-equivalent host call. Supplied by the
// caller (block-header storage is out of scope).
type GetHashFunc func(number uint64) common.Hash

// Context is the Block Context: everything a frame needs to run a
// transaction within one block, bundled once at block start and shared
// read-only across every transaction in it (spec.md §4.5 "data flow per
// block").
type Context struct {
	Header  Header
	VMKind  facade.VMKind
	Facade  *facade.Facade
	Registry *precompiled.Registry
	GetHash GetHashFunc
}

// New assembles a Context. The Registry is expected to already carry the
// built-in crypto precompiles (precompiled.RegisterBuiltins) and any
// table/KV-table services created by prior transactions in the block.
func New(header Header, vmKind facade.VMKind, f *facade.Facade, reg *precompiled.Registry, getHash GetHashFunc) *Context {
	return &Context{Header: header, VMKind: vmKind, Facade: f, Registry: reg, GetHash: getHash}
}

// BlockNumber returns the current block's number, or zero if unset.
func (c *Context) BlockNumber() *big.Int {
	if c.Header.Number == nil {
		return new(big.Int)
	}
	return c.Header.Number
}

// BlockHash resolves number via the context's GetHashFunc, returning the
// zero hash if no GetHashFunc is set. No range check is made here; the
// callback alone decides what an out-of-window number yields.
func (c *Context) BlockHash(number uint64) common.Hash {
	if c.GetHash == nil {
		return common.Hash{}
	}
	return c.GetHash(number)
}
