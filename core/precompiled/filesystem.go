package precompiled

import (
	"context"
	"strings"

	"github.com/morebtcg/bcos-executor-sub001/core/state"
)

// Filesystem path limits (original_source FileSystemPrecompiled.cpp):
// MAX_PATH_LENGTH / MAX_DIR_DEPTH / segment charset.
const (
	maxPathLength = 56
	maxPathDepth  = 6
)

// FileSystemSchema is the schema of the `/sys/` directory tables: every
// path has a row per child segment, recording its type (directory vs
// table) (spec.md LINEAR address space).
var FileSystemSchema = state.Schema{KeyField: "name", ValueFields: []string{"type", "target"}}

const (
	fsTypeDir   = "directory"
	fsTypeTable = "table"
)

func validSegment(seg string) bool {
	if seg == "" || strings.HasPrefix(seg, "_") {
		return false
	}
	for _, c := range seg {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}

// ValidPath reports whether path satisfies the LINEAR filesystem's shape
// constraints: absolute, at most maxPathLength bytes, at most maxPathDepth
// segments, and every segment matching [A-Za-z0-9_] with no leading
// underscore.
func ValidPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		return false
	}
	if len(path) > maxPathLength {
		return false
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) > maxPathDepth {
		return false
	}
	for _, s := range segs {
		if !validSegment(s) {
			return false
		}
	}
	return true
}

// FileSystemLayer is the subset of *state.Layer the directory helpers need.
type FileSystemLayer interface {
	OpenTable(name string) (*state.Table, bool)
	CreateTable(name string, schema state.Schema) (*state.Table, error)
	GetRow(ctx context.Context, table, key string) (*state.Entry, error)
	SetRow(ctx context.Context, table, key string, entry *state.Entry) error
	GetPrimaryKeys(ctx context.Context, table string, keyCond *state.Condition) ([]string, error)
}

func dirTableName(path string) string {
	if path == "/" {
		return "/sys/tables"
	}
	return "/sys/tables" + path
}

func parentAndLeaf(path string) (string, string) {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "/", trimmed[idx+1:]
	}
	return trimmed[:idx], trimmed[idx+1:]
}

// Mkdir creates path as a directory, creating any missing ancestor
// directories, and fails with ErrInvalidPath if a leaf segment along the
// way already exists as a non-directory table (SPEC_FULL supplement #6).
func Mkdir(ctx context.Context, layer FileSystemLayer, path string) error {
	if !ValidPath(path) {
		return ErrInvalidPath
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for _, seg := range segs {
		parentTable := dirTableName(cur)
		if _, ok := layer.OpenTable(parentTable); !ok {
			if _, err := layer.CreateTable(parentTable, FileSystemSchema); err != nil {
				return err
			}
		}
		existing, err := layer.GetRow(ctx, parentTable, seg)
		if err != nil {
			return err
		}
		cur = cur + "/" + seg
		if existing != nil {
			kind, _ := existing.GetField("type")
			if kind == fsTypeTable {
				return ErrInvalidPath
			}
		} else {
			e := state.NewEntry(FileSystemSchema)
			if err := e.SetField("type", fsTypeDir); err != nil {
				return err
			}
			if err := e.SetField("target", cur); err != nil {
				return err
			}
			if err := layer.SetRow(ctx, parentTable, seg, e); err != nil {
				return err
			}
		}
		// Ensure cur's own child-listing table exists (idempotent) so a
		// subsequent mkdir/link one level deeper, or an Ls of cur, always
		// finds it present.
		if _, ok := layer.OpenTable(dirTableName(cur)); !ok {
			if _, err := layer.CreateTable(dirTableName(cur), FileSystemSchema); err != nil {
				return err
			}
		}
	}
	return nil
}

// LinkTable records that a user table was created at path, so Ls can list
// it alongside subdirectories (called by the table factory after a
// successful CreateTable).
func LinkTable(ctx context.Context, layer FileSystemLayer, path, tableName string) error {
	if !ValidPath(path) {
		return ErrInvalidPath
	}
	parent, leaf := parentAndLeaf(path)
	parentTable := dirTableName(parent)
	if _, ok := layer.OpenTable(parentTable); !ok {
		if err := Mkdir(ctx, layer, parent); err != nil {
			return err
		}
	}
	existing, err := layer.GetRow(ctx, parentTable, leaf)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrPathAlreadyExists
	}
	e := state.NewEntry(FileSystemSchema)
	if err := e.SetField("type", fsTypeTable); err != nil {
		return err
	}
	if err := e.SetField("target", tableName); err != nil {
		return err
	}
	return layer.SetRow(ctx, parentTable, leaf, e)
}

// DirEntry is one child of a listed directory.
type DirEntry struct {
	Name   string
	IsDir  bool
	Target string
}

// Ls lists path's immediate children.
func Ls(ctx context.Context, layer FileSystemLayer, path string) ([]DirEntry, error) {
	table := dirTableName(path)
	if _, ok := layer.OpenTable(table); !ok {
		return nil, ErrPathNotFound
	}
	keys, err := layer.GetPrimaryKeys(ctx, table, nil)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(keys))
	for _, k := range keys {
		e, err := layer.GetRow(ctx, table, k)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		kind, _ := e.GetField("type")
		target, _ := e.GetField("target")
		out = append(out, DirEntry{Name: k, IsDir: kind == fsTypeDir, Target: target})
	}
	return out, nil
}
