// Package database owns the configured/initialized lifecycle of the
// physical store: it loads the persisted configuration, composes the
// schema, opens the connection, runs migrations, and exposes the
// resulting handles behind precondition-checked accessors.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/homebase-sh/homebase/internal/configstore"
	"github.com/homebase-sh/homebase/internal/migrate"
	"github.com/homebase-sh/homebase/internal/schema"
	"github.com/homebase-sh/homebase/pkg/types"
)

// Options configures a Manager.
type Options struct {
	// DataDir is where the configuration record and, by default, the
	// database file live.
	DataDir string

	// MigrationsDir holds ordered .sql migration files. May be absent.
	MigrationsDir string

	// Composer supplies table definitions. A fresh core-only composer is
	// created when nil.
	Composer *schema.Composer

	Logger *slog.Logger
}

// Manager is the stateful core orchestrating configuration loading,
// schema composition, connection opening and migration execution. A
// single instance is constructed at process start and handed to every
// consumer; it is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	store    *configstore.Store
	composer *schema.Composer
	runner   *migrate.Runner
	logger   *slog.Logger

	dataDir       string
	migrationsDir string

	configured  bool
	initialized bool
	config      *types.DatabaseConfig
	schema      types.Schema
	conn        *sql.DB
}

// NewManager creates an unconfigured manager. Call Initialize to load any
// persisted configuration, or SetupNewDatabase to provision a fresh one.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	composer := opts.Composer
	if composer == nil {
		composer = schema.NewComposer(logger)
	}
	return &Manager{
		store:         configstore.New(opts.DataDir, logger),
		composer:      composer,
		runner:        migrate.NewRunner(logger),
		logger:        logger,
		dataDir:       opts.DataDir,
		migrationsDir: opts.MigrationsDir,
	}
}

// Composer returns the schema composer plugin tables register against.
func (m *Manager) Composer() *schema.Composer {
	return m.composer
}

// Initialize brings the database up from the persisted configuration.
// It returns (false, nil) when no configuration exists: that is the
// normal "setup required" state, not a failure. It is idempotent, and
// the mutex serializes concurrent first-time callers so the second one
// observes the first one's result instead of racing it.
func (m *Manager) Initialize(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked(ctx)
}

func (m *Manager) initializeLocked(ctx context.Context) (bool, error) {
	if m.initialized {
		return true, nil
	}

	cfg, err := m.store.Load()
	if err != nil {
		return false, err
	}
	if cfg == nil {
		m.configured = false
		return false, nil
	}
	m.configured = true
	m.config = cfg

	composed, err := m.composer.Compose(cfg.Backend)
	if err != nil {
		return false, fmt.Errorf("compose schema: %w", err)
	}

	path := cfg.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.dataDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create database directory: %w", err)
	}

	// Existence only informs the log line; migrations run either way.
	_, statErr := os.Stat(path)
	existed := statErr == nil

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return false, fmt.Errorf("open database: %w", err)
	}

	if err := m.createTables(ctx, conn, composed); err != nil {
		conn.Close()
		return false, err
	}

	if err := m.runner.Apply(ctx, conn, m.migrationsDir); err != nil {
		conn.Close()
		return false, fmt.Errorf("run migrations: %w", err)
	}

	m.conn = conn
	m.schema = composed
	m.initialized = true
	m.logger.Info("database initialized",
		"dialect", cfg.Backend, "path", path, "existed", existed,
		"tables", len(composed))
	return true, nil
}

// createTables executes the composed schema's DDL. Statements use
// IF NOT EXISTS, so re-running against an existing store is harmless.
func (m *Manager) createTables(ctx context.Context, conn *sql.DB, s types.Schema) error {
	for _, stmt := range schema.DDLStatements(s) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// SetupNewDatabase persists the given configuration and initializes the
// store. Calling it when already configured and initialized is a warned
// no-op returning true; when configured but not yet initialized it just
// attempts initialization.
func (m *Manager) SetupNewDatabase(ctx context.Context, cfg types.DatabaseConfig) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.configured && m.initialized {
		m.logger.Warn("setup requested but database is already configured and initialized; ignoring")
		return true, nil
	}
	if m.configured && !m.initialized {
		return m.initializeLocked(ctx)
	}

	if err := cfg.Validate(); err != nil {
		return false, err
	}
	if err := m.store.Save(cfg); err != nil {
		return false, err
	}

	m.resetLocked()
	m.configured = true
	return m.initializeLocked(ctx)
}

// resetLocked drops all in-memory lifecycle state, closing any stale
// connection first.
func (m *Manager) resetLocked() {
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Error("closing stale connection", "error", err)
		}
	}
	m.conn = nil
	m.schema = nil
	m.config = nil
	m.configured = false
	m.initialized = false
}

// DB returns the queryable handle. It fails with ErrNotInitialized until
// Initialize or SetupNewDatabase has succeeded.
func (m *Manager) DB() (*types.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, types.ErrNotInitialized
	}
	return &types.DB{Conn: m.conn, Schema: m.schema}, nil
}

// Schema returns the composed schema, or ErrNoSchema when none has been
// composed yet.
func (m *Manager) Schema() (types.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schema == nil {
		return nil, types.ErrNoSchema
	}
	return m.schema, nil
}

// Conn returns the raw connection, or ErrNoConnection when none is open.
// The connection is owned by the manager; callers must not close it.
func (m *Manager) Conn() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil, types.ErrNoConnection
	}
	return m.conn, nil
}

// Status reports the lifecycle state. It never fails and is safe to call
// at any stage; it is the one query route handlers may always make.
func (m *Manager) Status() types.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := types.Status{Configured: m.configured, Initialized: m.initialized}
	if m.config != nil {
		st.Dialect = m.config.Backend
	}
	return st
}

// RegenerateSchema recomposes the schema, picking up table definitions
// registered since the last composition, and rebinds the existing
// connection to it. The connection is not reopened and migrations are
// not rerun.
func (m *Manager) RegenerateSchema() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.configured || m.config == nil {
		return types.ErrNotInitialized
	}
	composed, err := m.composer.Compose(m.config.Backend)
	if err != nil {
		return fmt.Errorf("regenerate schema: %w", err)
	}
	m.schema = composed
	m.logger.Info("schema regenerated", "tables", len(composed))
	return nil
}

// RegisterPluginTables merges each plugin's table definitions into the
// composer. Registration after initialization is accepted, but the live
// schema is stale until RegenerateSchema or a restart.
func (m *Manager) RegisterPluginTables(plugins []types.Plugin) {
	m.mu.Lock()
	stale := m.initialized
	m.mu.Unlock()

	for _, p := range plugins {
		ext, ok := p.(types.DatabaseExtension)
		if !ok {
			continue
		}
		id := p.Meta().ID
		m.composer.RegisterPluginTables(id, ext.TableDefs())
		if stale {
			m.logger.Warn("plugin tables registered after initialization; live schema is stale until regeneration",
				"plugin", id)
		}
	}
}

// CreatePluginTables registers the plugins' table definitions, recomposes
// the schema, and creates any tables missing from the live store. It
// requires an initialized database.
func (m *Manager) CreatePluginTables(ctx context.Context, plugins []types.Plugin) error {
	for _, p := range plugins {
		ext, ok := p.(types.DatabaseExtension)
		if !ok {
			continue
		}
		m.composer.RegisterPluginTables(p.Meta().ID, ext.TableDefs())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return types.ErrNotInitialized
	}
	composed, err := m.composer.Compose(m.config.Backend)
	if err != nil {
		return fmt.Errorf("compose plugin tables: %w", err)
	}
	if err := m.createTables(ctx, m.conn, composed); err != nil {
		return err
	}
	m.schema = composed
	return nil
}

// InitializePluginDatabases runs each database-extending plugin's
// one-time seeding hook against the live handle. A single plugin's
// failure is logged and does not block the others.
func (m *Manager) InitializePluginDatabases(ctx context.Context, db *types.DB, plugins []types.Plugin) {
	for _, p := range plugins {
		ext, ok := p.(types.DatabaseExtension)
		if !ok {
			continue
		}
		if err := ext.OnDatabaseInit(ctx, db); err != nil {
			m.logger.Error("plugin database init failed", "plugin", p.Meta().ID, "error", err)
		}
	}
}

// Close releases the connection and returns the manager to the
// configured-but-not-initialized state. It is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		m.initialized = false
		m.schema = nil
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.schema = nil
	m.initialized = false
	if err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
