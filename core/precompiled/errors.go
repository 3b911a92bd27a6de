package precompiled

import "fmt"

// Precompiled-level errors, named after the original's CODE_* constants
// (original_source/libprecompiled/Common.h) so fixture tests and callers
// can match on them directly rather than on opaque wrapped strings.
var (
	ErrInsertKeyExists      = fmt.Errorf("precompiled: %s", "INSERT_KEY_EXISTS")
	ErrUpdateKeyNotExist    = fmt.Errorf("precompiled: %s", "UPDATE_KEY_NOT_EXIST")
	ErrKeyNotInEntry        = fmt.Errorf("precompiled: %s", "KEY_NOT_IN_ENTRY")
	ErrKeyNotInCondition    = fmt.Errorf("precompiled: %s", "KEY_NOT_IN_CONDITION")
	ErrParseEntry           = fmt.Errorf("precompiled: %s", "PARSE_ENTRY_ERROR")
	ErrParseCondition       = fmt.Errorf("precompiled: %s", "PARSE_CONDITION_ERROR")
	ErrConditionOpUndefined = fmt.Errorf("precompiled: %s", "CONDITION_OPERATION_UNDEFINED")
	ErrTableKeyValueOverflow = fmt.Errorf("precompiled: %s", "TABLE_KEY_VALUE_LENGTH_OVERFLOW")
	ErrPermissionDenied     = fmt.Errorf("precompiled: %s", "PERMISSION_DENIED")
	ErrTableNameAndAddressExist = fmt.Errorf("precompiled: %s", "TABLE_NAME_AND_ADDRESS_EXIST")
	ErrUnknownFunctionSelector  = fmt.Errorf("precompiled: %s", "UNKNOWN_FUNCTION_SELECTOR")
	ErrInvalidPath              = fmt.Errorf("precompiled: %s", "INVALID_PATH")
	ErrPathAlreadyExists        = fmt.Errorf("precompiled: %s", "FILE_ALREADY_EXISTS")
	ErrPathNotFound             = fmt.Errorf("precompiled: %s", "FILE_NOT_EXIST")
)

// UserTableKeyValueMaxLength bounds a single primary-key value's length for
// user-created tables (original_source/libprecompiled/TablePrecompiled.cpp,
// USER_TABLE_KEY_VALUE_MAX_LENGTH).
const UserTableKeyValueMaxLength = 255

// UserTableFieldValueMaxLength bounds a single non-key field value's length.
const UserTableFieldValueMaxLength = 16 * 1024
