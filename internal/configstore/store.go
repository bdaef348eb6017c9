// Package configstore persists the database configuration record to a
// JSON file in the data directory. A missing file is the normal
// "not yet configured" state, not an error.
package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/homebase-sh/homebase/pkg/types"
)

// File names for the persisted configuration. Test runs use a separate
// file so concurrent tests never touch a developer's real configuration.
const (
	configFileName     = "database.json"
	testConfigFileName = "database.test.json"
)

// EnvTestMode switches the store to the isolated test file and silences
// informational logging when set to "1".
const EnvTestMode = "HOMEBASE_TEST_MODE"

// Store reads and writes the database configuration file.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a store rooted at the given data directory.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Path returns the full path of the configuration file.
func (s *Store) Path() string {
	name := configFileName
	if testMode() {
		name = testConfigFileName
	}
	return filepath.Join(s.dir, name)
}

// Load reads the persisted configuration. It returns (nil, nil) when the
// file does not exist. Read or parse failures are logged and also yield
// (nil, nil): a corrupt config file degrades to the unconfigured state
// rather than crashing startup.
func (s *Store) Load() (*types.DatabaseConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.info("no database configuration found", "path", s.Path())
			return nil, nil
		}
		s.logger.Error("reading database configuration", "path", s.Path(), "error", err)
		return nil, nil
	}

	var cfg types.DatabaseConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.logger.Error("parsing database configuration", "path", s.Path(), "error", err)
		return nil, nil
	}
	return &cfg, nil
}

// Save persists the configuration as indented JSON. Unlike Load, failures
// propagate: silently losing the setup record is unacceptable.
func (s *Store) Save(cfg types.DatabaseConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal database configuration: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("write database configuration: %w", err)
	}
	s.info("database configuration saved", "path", s.Path())
	return nil
}

// Delete removes the configuration file. An already-absent file is
// success.
func (s *Store) Delete() error {
	err := os.Remove(s.Path())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete database configuration: %w", err)
	}
	return nil
}

// info logs at info level unless test mode suppresses it.
func (s *Store) info(msg string, args ...any) {
	if testMode() {
		return
	}
	s.logger.Info(msg, args...)
}

func testMode() bool {
	return os.Getenv(EnvTestMode) == "1"
}
