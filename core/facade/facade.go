// Package facade presents account-level operations (balance, nonce, code,
// storage slot) on top of a state.Layer using the fixed account schema —
// component D of spec.md §4.3.
package facade

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// VMKind selects the address space: NATIVE uses 20-byte addresses and
// "c_<hex>" table names; LINEAR uses filesystem paths and "/apps/<path>"
// table names (spec.md §3).
type VMKind int

const (
	NATIVE VMKind = iota
	LINEAR
)

// ErrNotEnoughCash is raised by SubBalance when the account's balance is
// below the requested amount, or the account does not exist.
var ErrNotEnoughCash = fmt.Errorf("facade: %s", "NOT_ENOUGH_CASH")

// ErrAccountNonexistent names the ACCOUNT_NONEXISTENT error kind. No Facade
// method returns it; SubBalance reports a missing account as
// ErrNotEnoughCash.
var ErrAccountNonexistent = fmt.Errorf("facade: %s", "ACCOUNT_NONEXISTENT")

// StateLayer is the subset of *state.Layer / *state.CacheLayer the facade
// needs; both satisfy it.
type StateLayer interface {
	state.Reader
	SetRow(ctx context.Context, table, key string, entry *state.Entry) error
	CreateTable(name string, schema state.Schema) (*state.Table, error)
	Savepoint() int
	Rollback(token int) error
	Hash(ctx context.Context) (common.Hash, error)
}

// Facade is the Host State Facade, component D.
type Facade struct {
	layer  StateLayer
	vmKind VMKind
}

// New wraps layer with the fixed account schema operations for the given
// VM kind.
func New(layer StateLayer, vmKind VMKind) *Facade {
	return &Facade{layer: layer, vmKind: vmKind}
}

// AccountTable returns the bit-exact table name for id under this facade's
// VM kind (spec.md §6).
func (f *Facade) AccountTable(id common.Identity) string {
	return AccountTableName(f.vmKind, id)
}

// AccountTableName is AccountTable's pure, vmKind-parameterized form, kept
// standalone so callers that need the account-table namespace without a
// Facade in hand (the executor's conflict-field catalog, comparing declared
// keys against a transaction's actual touched tables) don't have to
// duplicate the "c_<hex>" / "/apps/<path>" derivation (spec.md §6).
func AccountTableName(vmKind VMKind, id common.Identity) string {
	if vmKind == LINEAR {
		return "/apps" + string(id)
	}
	return "c_" + string(id)[2:] // id.Hex() includes the 0x prefix
}

func (f *Facade) ensureTable(ctx context.Context, id common.Identity) (string, error) {
	table := f.AccountTable(id)
	if _, ok := f.layer.OpenTable(table); !ok {
		if _, err := f.layer.CreateTable(table, state.AccountSchema); err != nil && err != state.ErrTableExists {
			return "", err
		}
	}
	return table, nil
}

func (f *Facade) getRow(ctx context.Context, id common.Identity, row string) (string, bool, error) {
	table := f.AccountTable(id)
	if _, ok := f.layer.OpenTable(table); !ok {
		return "", false, nil
	}
	e, err := f.layer.GetRow(ctx, table, row)
	if err != nil {
		return "", false, err
	}
	if e == nil {
		return "", false, nil
	}
	v, _ := e.GetField("value")
	return v, true, nil
}

func (f *Facade) setRow(ctx context.Context, id common.Identity, row, value string) error {
	table, err := f.ensureTable(ctx, id)
	if err != nil {
		return err
	}
	e := state.NewEntry(state.AccountSchema)
	if err := e.SetField("value", value); err != nil {
		return err
	}
	return f.layer.SetRow(ctx, table, row, e)
}

// AddressInUse reports whether the account table exists at all (has ever
// been created, even if killed).
func (f *Facade) AddressInUse(ctx context.Context, id common.Identity) bool {
	_, ok := f.layer.OpenTable(f.AccountTable(id))
	return ok
}

// ExistsAndNonempty reports whether the account is alive and has either a
// nonzero balance, nonzero nonce, or non-empty code.
func (f *Facade) ExistsAndNonempty(ctx context.Context, id common.Identity) (bool, error) {
	if !f.AddressInUse(ctx, id) {
		return false, nil
	}
	alive, _, err := f.getRow(ctx, id, state.AccountRowAlive)
	if err != nil {
		return false, err
	}
	if alive != "true" {
		return false, nil
	}
	bal, err := f.Balance(ctx, id)
	if err != nil {
		return false, err
	}
	if !bal.IsZero() {
		return true, nil
	}
	nonce, err := f.GetNonce(ctx, id)
	if err != nil {
		return false, err
	}
	if !nonce.IsZero() {
		return true, nil
	}
	code, err := f.Code(ctx, id)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// HasCode reports whether the account has non-empty code.
func (f *Facade) HasCode(ctx context.Context, id common.Identity) (bool, error) {
	code, err := f.Code(ctx, id)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func (f *Facade) Balance(ctx context.Context, id common.Identity) (*uint256.Int, error) {
	v, ok, err := f.getRow(ctx, id, state.AccountRowBalance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return uint256.NewInt(0), nil
	}
	return common.DecodeDecimal(v)
}

func (f *Facade) SetBalance(ctx context.Context, id common.Identity, amount *uint256.Int) error {
	return f.setRow(ctx, id, state.AccountRowBalance, common.EncodeDecimal(amount))
}

// AddBalance credits amount to id's balance.
func (f *Facade) AddBalance(ctx context.Context, id common.Identity, amount *uint256.Int) error {
	bal, err := f.Balance(ctx, id)
	if err != nil {
		return err
	}
	sum := new(uint256.Int).Add(bal, amount)
	return f.SetBalance(ctx, id, sum)
}

// SubBalance debits amount from id's balance, failing with
// ErrNotEnoughCash if the account is absent or underfunded.
func (f *Facade) SubBalance(ctx context.Context, id common.Identity, amount *uint256.Int) error {
	if !f.AddressInUse(ctx, id) {
		return ErrNotEnoughCash
	}
	bal, err := f.Balance(ctx, id)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return ErrNotEnoughCash
	}
	diff := new(uint256.Int).Sub(bal, amount)
	return f.SetBalance(ctx, id, diff)
}

// TransferBalance performs SubBalance(from) then AddBalance(to). The two
// writes are not atomic across accounts; callers needing atomicity use
// savepoints (spec.md §4.3).
func (f *Facade) TransferBalance(ctx context.Context, from, to common.Identity, amount *uint256.Int) error {
	if err := f.SubBalance(ctx, from, amount); err != nil {
		return err
	}
	return f.AddBalance(ctx, to, amount)
}

func (f *Facade) Storage(ctx context.Context, id common.Identity, key string) (string, error) {
	v, _, err := f.getRow(ctx, id, key)
	return v, err
}

func (f *Facade) SetStorage(ctx context.Context, id common.Identity, key, value string) error {
	return f.setRow(ctx, id, key, value)
}

// ClearStorage is a no-op by policy (spec.md §4.3): BCOS-style per-key
// storage tables have no "clear all slots" primitive, so this exists only
// to satisfy the interface contracts that call it.
func (f *Facade) ClearStorage(ctx context.Context, id common.Identity) error { return nil }

func (f *Facade) SetCode(ctx context.Context, id common.Identity, code []byte) error {
	if err := f.setRow(ctx, id, state.AccountRowCode, string(code)); err != nil {
		return err
	}
	return f.setRow(ctx, id, state.AccountRowCodeHash, common.BytesToHash(common.Keccak256(code)).Hex())
}

func (f *Facade) Code(ctx context.Context, id common.Identity) ([]byte, error) {
	v, _, err := f.getRow(ctx, id, state.AccountRowCode)
	return []byte(v), err
}

// CodeHash defaults to EmptyCodeHash for never-used accounts.
func (f *Facade) CodeHash(ctx context.Context, id common.Identity) (common.Hash, error) {
	v, ok, err := f.getRow(ctx, id, state.AccountRowCodeHash)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.EmptyCodeHash, nil
	}
	return common.BytesToHash(common.FromHex(v)), nil
}

func (f *Facade) CodeSize(ctx context.Context, id common.Identity) (int, error) {
	code, err := f.Code(ctx, id)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

func (f *Facade) Frozen(ctx context.Context, id common.Identity) (bool, error) {
	v, _, err := f.getRow(ctx, id, state.AccountRowFrozen)
	return v == "true", err
}

func (f *Facade) GetNonce(ctx context.Context, id common.Identity) (*uint256.Int, error) {
	v, ok, err := f.getRow(ctx, id, state.AccountRowNonce)
	if err != nil {
		return nil, err
	}
	if !ok {
		return uint256.NewInt(0), nil
	}
	return common.DecodeDecimal(v)
}

func (f *Facade) SetNonce(ctx context.Context, id common.Identity, nonce *uint256.Int) error {
	return f.setRow(ctx, id, state.AccountRowNonce, common.EncodeDecimal(nonce))
}

func (f *Facade) IncNonce(ctx context.Context, id common.Identity) error {
	n, err := f.GetNonce(ctx, id)
	if err != nil {
		return err
	}
	return f.SetNonce(ctx, id, new(uint256.Int).AddUint64(n, 1))
}

// Kill writes empty code, zero balance, and alive=false. The account table
// remains present (spec.md §4.3).
func (f *Facade) Kill(ctx context.Context, id common.Identity) error {
	if err := f.SetCode(ctx, id, nil); err != nil {
		return err
	}
	if err := f.SetBalance(ctx, id, uint256.NewInt(0)); err != nil {
		return err
	}
	return f.setRow(ctx, id, state.AccountRowAlive, "false")
}

// CreateAccount initializes every fixed row of the schema.
func (f *Facade) CreateAccount(ctx context.Context, id common.Identity, nonce *uint256.Int, amount *uint256.Int) error {
	if _, err := f.ensureTable(ctx, id); err != nil {
		return err
	}
	if err := f.SetBalance(ctx, id, amount); err != nil {
		return err
	}
	if err := f.setRow(ctx, id, state.AccountRowCodeHash, common.EmptyCodeHash.Hex()); err != nil {
		return err
	}
	if err := f.setRow(ctx, id, state.AccountRowCode, ""); err != nil {
		return err
	}
	if err := f.SetNonce(ctx, id, nonce); err != nil {
		return err
	}
	return f.setRow(ctx, id, state.AccountRowAlive, "true")
}

// RootHash returns the underlying layer's dirty-row hash.
func (f *Facade) RootHash(ctx context.Context) (common.Hash, error) {
	return f.layer.Hash(ctx)
}

func (f *Facade) Savepoint() int            { return f.layer.Savepoint() }
func (f *Facade) Rollback(sp int) error     { return f.layer.Rollback(sp) }

// CheckAuthority reports whether caller is authorized to act on behalf of
// origin. A true return means "authorized", applied uniformly across
// insert/update/remove — see DESIGN.md for the §9 inversion-bug decision.
// The policy authorizes when origin equals caller or origin is empty; no
// other rule (such as a sys_config-driven ACL) is applied.
func (f *Facade) CheckAuthority(ctx context.Context, origin, caller common.Identity) bool {
	return origin == caller || origin == ""
}
