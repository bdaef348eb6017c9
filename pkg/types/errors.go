package types

import "errors"

// Lifecycle accessor errors. Each names the specific precondition that
// failed so callers can tell "no schema" from "no connection" from "not
// initialized at all" in diagnostics.
var (
	ErrNotInitialized = errors.New("database not initialized: run setup or initialize first")
	ErrNoSchema       = errors.New("schema not composed: database was never initialized")
	ErrNoConnection   = errors.New("no open database connection")
)

// Composition and migration errors.
var (
	ErrUnsupportedKind = errors.New("column kind not supported by backend")
	ErrTableNotFound   = errors.New("table not found in composed schema")
)

// Plugin errors.
var (
	ErrDuplicatePlugin = errors.New("plugin id already registered")
	ErrUnknownPlugin   = errors.New("no registered plugin factory for id")
)

// Settings errors.
var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrGroupNotFound   = errors.New("setting group not found")
)
