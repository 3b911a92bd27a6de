package precompiled

import (
	"context"

	"github.com/morebtcg/bcos-executor-sub001/common"
	"github.com/morebtcg/bcos-executor-sub001/core/facade"
	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// StateLayerFull is the table-creating subset of *state.Layer that the
// factory needs, a superset of StateLayer/FileSystemLayer.
type StateLayerFull interface {
	StateLayer
	FileSystemLayer
}

// Factory is the table-creation entry point (the equivalent of
// TableFactoryPrecompiled / KVTableFactoryPrecompiled). It is not itself a
// registry Object; callers use its methods directly. It wires table creation, filesystem linking,
// and TableService/KVTableService registration together.
type Factory struct {
	reg    *Registry
	layer  StateLayerFull
	auth   Authorizer
	vmKind facade.VMKind
}

// NewFactory returns a Factory bound to reg/layer/auth.
func NewFactory(reg *Registry, layer StateLayerFull, auth Authorizer, vmKind facade.VMKind) *Factory {
	return &Factory{reg: reg, layer: layer, auth: auth, vmKind: vmKind}
}

// CreateTable creates a user table at path with the given non-key value
// fields, links it into the filesystem, registers its TableService at a
// fresh transient identity, and returns that identity.
func (f *Factory) CreateTable(ctx context.Context, path, keyField string, valueFields []string) (common.Identity, error) {
	if !ValidPath(path) {
		return "", ErrInvalidPath
	}
	tableName := "/user" + path
	if _, ok := f.layer.OpenTable(tableName); ok {
		return "", ErrTableNameAndAddressExist
	}
	schema := state.Schema{KeyField: keyField, ValueFields: withKeyField(keyField, valueFields)}
	table, err := f.layer.CreateTable(tableName, schema)
	if err != nil {
		return "", err
	}
	if err := LinkTable(ctx, f.layer, path, tableName); err != nil {
		return "", err
	}
	svc := NewTableService(f.reg, f.layer, f.auth, table)
	return f.reg.RegisterTransient(svc), nil
}

// CreateKVTable is CreateTable's KV-table counterpart (SPEC_FULL supplement
// #7): the schema is fixed to KVTableSchema and a KVTableService, not a
// TableService, is registered.
func (f *Factory) CreateKVTable(ctx context.Context, path string) (common.Identity, error) {
	if !ValidPath(path) {
		return "", ErrInvalidPath
	}
	tableName := "/user" + path
	if _, ok := f.layer.OpenTable(tableName); ok {
		return "", ErrTableNameAndAddressExist
	}
	table, err := f.layer.CreateTable(tableName, KVTableSchema)
	if err != nil {
		return "", err
	}
	if err := LinkTable(ctx, f.layer, path, tableName); err != nil {
		return "", err
	}
	svc := NewKVTableService(f.layer, f.auth, table)
	return f.reg.RegisterTransient(svc), nil
}

// withKeyField ensures keyField is also addressable as an Entry field, so
// Entry.SetField(keyField, ...) succeeds: TableService.insert reads the row
// key back out of the entry's own field map (the BCOS Entry convention),
// even though core/state's key/value split keeps the key out of the
// backing row's value-field list.
func withKeyField(keyField string, valueFields []string) []string {
	for _, f := range valueFields {
		if f == keyField {
			return valueFields
		}
	}
	return append([]string{keyField}, valueFields...)
}

// OpenTable registers a fresh TableService for the existing table at path
// and returns its new transient identity, for contracts re-opening a table
// they (or another contract) created earlier in the same block.
func (f *Factory) OpenTable(path string) (common.Identity, error) {
	tableName := "/user" + path
	table, ok := f.layer.OpenTable(tableName)
	if !ok {
		return "", ErrPathNotFound
	}
	svc := NewTableService(f.reg, f.layer, f.auth, table)
	return f.reg.RegisterTransient(svc), nil
}
