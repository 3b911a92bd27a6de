package state

import "errors"

// Storage error kinds (spec.md §7 "Storage").
var (
	ErrTableNotFound = errors.New("state: table not found")
	ErrTableExists   = errors.New("state: table already exists")
	ErrKeyNotFound   = errors.New("state: key not found")
	ErrFieldTooLong  = errors.New("state: field value too long")
	ErrPathInvalid   = errors.New("state: invalid path")
	ErrBackendIO     = errors.New("state: backend I/O error")

	// ErrSavepointReplayed guards the "tokens MUST NOT be replayed"
	// invariant in spec.md §4.1.
	ErrSavepointReplayed = errors.New("state: savepoint token already replayed")
)
