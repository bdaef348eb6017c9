package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/homebase-sh/homebase/pkg/types"
)

// manifestFileName is the per-plugin file a search directory entry must
// contain to be discovered.
const manifestFileName = "plugin.yaml"

// Manifest is the on-disk declaration that maps a plugin directory to a
// registered factory and carries its options.
type Manifest struct {
	ID      string         `yaml:"id"`
	Enabled *bool          `yaml:"enabled"`
	Config  map[string]any `yaml:"config"`
}

// PluginOptions tracks per-plugin enablement and configuration.
type PluginOptions struct {
	Enabled bool
	Config  map[string]any
}

// Options configures a Manager.
type Options struct {
	// SearchPaths are directories scanned for plugin manifests. Absent
	// paths are created; an empty plugin set is valid.
	SearchPaths []string

	// Registry resolves manifest ids to factories.
	Registry *Registry

	// Mux is the host route surface plugin routes are mounted on.
	Mux *http.ServeMux

	Logger *slog.Logger
}

// Manager holds the loaded plugins and drives their lifecycle.
type Manager struct {
	mu          sync.Mutex
	registry    *Registry
	logger      *slog.Logger
	searchPaths []string
	mux         *http.ServeMux

	plugins map[string]types.Plugin // active set
	options map[string]PluginOptions
	order   []string // activation order, for deterministic lifecycle runs
	inited  bool
	db      *types.DB // nil until the database is available
}

// NewManager creates a plugin manager.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	mux := opts.Mux
	if mux == nil {
		mux = http.NewServeMux()
	}
	return &Manager{
		registry:    registry,
		logger:      logger,
		searchPaths: opts.SearchPaths,
		mux:         mux,
		plugins:     make(map[string]types.Plugin),
		options:     make(map[string]PluginOptions),
	}
}

// SetDB updates the database handle handed to plugins during later
// lifecycle calls. It does not retroactively notify plugins; use
// ReinitializeWithDatabase for that.
func (m *Manager) SetDB(db *types.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = db
}

// Plugins returns the active plugins in activation order.
func (m *Manager) Plugins() []types.Plugin {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Plugin, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.plugins[id])
	}
	return out
}

// DiscoverPlugins scans every search path for directories containing a
// plugin manifest and loads each one. A failing manifest is logged and
// skipped; discovery of the remaining plugins continues.
func (m *Manager) DiscoverPlugins() error {
	for _, dir := range m.searchPaths {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plugin directory %s: %w", dir, err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read plugin directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			manifestPath := filepath.Join(dir, e.Name(), manifestFileName)
			if _, err := os.Stat(manifestPath); err != nil {
				continue
			}
			if _, err := m.LoadPlugin(manifestPath); err != nil {
				m.logger.Error("loading plugin failed", "manifest", manifestPath, "error", err)
			}
		}
	}
	return nil
}

// LoadPlugin reads one manifest, instantiates the plugin it names and,
// when enabled, registers it into the active set. A disabled plugin is
// instantiated but not activated so its metadata stays inspectable.
// Duplicate ids are rejected for this load only.
func (m *Manager) LoadPlugin(manifestPath string) (types.Plugin, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing plugin id", manifestPath)
	}

	factory, ok := m.registry.Factory(manifest.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownPlugin, manifest.ID)
	}
	p := factory()
	if got := p.Meta().ID; got != manifest.ID {
		return nil, fmt.Errorf("manifest id %q does not match plugin id %q", manifest.ID, got)
	}

	enabled := manifest.Enabled == nil || *manifest.Enabled
	return p, m.addPlugin(p, PluginOptions{Enabled: enabled, Config: manifest.Config})
}

// AddPlugin registers an already-constructed plugin, bypassing manifest
// discovery. Used for built-in plugins and tests.
func (m *Manager) AddPlugin(p types.Plugin, opts PluginOptions) error {
	return m.addPlugin(p, opts)
}

func (m *Manager) addPlugin(p types.Plugin, opts PluginOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := p.Meta().ID
	if _, ok := m.options[id]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicatePlugin, id)
	}
	m.options[id] = opts

	if !opts.Enabled {
		m.logger.Info("plugin disabled, not activating", "plugin", id)
		return nil
	}
	m.plugins[id] = p
	m.order = append(m.order, id)
	m.logger.Info("plugin loaded", "plugin", id, "version", p.Meta().Version)
	return nil
}

// InitializePlugins initializes every active plugin and mounts its
// routes. It is idempotent and never fails as a whole: one plugin's
// failure is logged and the rest continue. The database handle may be
// nil; plugins are required to tolerate that.
func (m *Manager) InitializePlugins(ctx context.Context) {
	m.mu.Lock()
	if m.inited {
		m.mu.Unlock()
		return
	}
	m.inited = true
	db := m.db
	order := append([]string(nil), m.order...)
	m.mu.Unlock()

	for _, id := range order {
		p := m.plugins[id]
		if err := p.Initialize(ctx, db); err != nil {
			m.logger.Error("plugin initialization failed", "plugin", id, "error", err)
			continue
		}
		if rr, ok := p.(types.RouteRegistrar); ok {
			rr.RegisterRoutes(newNamespacedRoutes(m.mux, id), db)
		}
		m.logger.Info("plugin initialized", "plugin", id)
	}
}

// ReinitializeWithDatabase notifies plugins that the database became
// available after their initialization. Only plugins that declared a
// database extension or an explicit Reinitialize method are touched;
// the rest already handled the nil handle and are left alone.
func (m *Manager) ReinitializeWithDatabase(ctx context.Context, db *types.DB) {
	m.mu.Lock()
	m.db = db
	order := append([]string(nil), m.order...)
	m.mu.Unlock()

	for _, id := range order {
		p := m.plugins[id]
		r, isReinit := p.(types.Reinitializer)
		_, hasExt := p.(types.DatabaseExtension)
		if !isReinit && !hasExt {
			continue
		}
		var err error
		if isReinit {
			err = r.Reinitialize(ctx, db)
		} else {
			// Database-extension plugins without an explicit hook get
			// their Initialize re-run with the live handle.
			err = p.Initialize(ctx, db)
		}
		if err != nil {
			m.logger.Error("plugin reinitialization failed", "plugin", id, "error", err)
		}
	}
}

// ShutdownPlugins shuts plugins down sequentially, best effort: one
// failure is logged and does not block the rest.
func (m *Manager) ShutdownPlugins(ctx context.Context) {
	m.mu.Lock()
	order := append([]string(nil), m.order...)
	m.mu.Unlock()

	for _, id := range order {
		s, ok := m.plugins[id].(types.Shutdowner)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx); err != nil {
			m.logger.Error("plugin shutdown failed", "plugin", id, "error", err)
		}
	}
}
