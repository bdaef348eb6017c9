package types

import "errors"

// DatabaseConfig holds backend selection and connection parameters.
// It is persisted as JSON by the configuration store; absence of the
// persisted file means "not yet configured", which is a valid state.
type DatabaseConfig struct {
	Backend string `json:"backend"`
	Path    string `json:"path"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrPathEmpty      = errors.New("database path must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the DatabaseConfig is well-formed. It returns a
// sentinel error from this package on failure.
func (c DatabaseConfig) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Path == "" {
		return ErrPathEmpty
	}
	return nil
}
