package plugin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homebase-sh/homebase/internal/logging"
	"github.com/homebase-sh/homebase/pkg/types"
)

// fakePlugin records lifecycle calls and optionally fails them.
type fakePlugin struct {
	id            string
	initErr       error
	initCalls     int
	reinitCalls   int
	shutdownCalls int
	shutdownErr   error
	routes        []string
	lastDB        *types.DB
}

func (p *fakePlugin) Meta() types.PluginMeta {
	return types.PluginMeta{ID: p.id, Version: "0.1.0"}
}

func (p *fakePlugin) Initialize(ctx context.Context, db *types.DB) error {
	p.initCalls++
	p.lastDB = db
	return p.initErr
}

func (p *fakePlugin) RegisterRoutes(routes types.RouteManager, db *types.DB) {
	for _, r := range p.routes {
		routes.HandleFunc(r, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
}

// reinitPlugin additionally implements Reinitialize and Shutdown.
type reinitPlugin struct {
	fakePlugin
}

func (p *reinitPlugin) Reinitialize(ctx context.Context, db *types.DB) error {
	p.reinitCalls++
	p.lastDB = db
	return nil
}

func (p *reinitPlugin) Shutdown(ctx context.Context) error {
	p.shutdownCalls++
	return p.shutdownErr
}

func newTestManager(t *testing.T, mux *http.ServeMux) *Manager {
	t.Helper()
	return NewManager(Options{
		Registry: NewRegistry(),
		Mux:      mux,
		Logger:   logging.Discard(),
	})
}

func TestInitializePlugins_ToleratesNilDB(t *testing.T) {
	m := newTestManager(t, nil)
	p := &fakePlugin{id: "p1"}
	require.NoError(t, m.AddPlugin(p, PluginOptions{Enabled: true}))

	m.InitializePlugins(context.Background())

	assert.Equal(t, 1, p.initCalls)
	assert.Nil(t, p.lastDB)
}

func TestInitializePlugins_Idempotent(t *testing.T) {
	m := newTestManager(t, nil)
	p := &fakePlugin{id: "p1"}
	require.NoError(t, m.AddPlugin(p, PluginOptions{Enabled: true}))

	m.InitializePlugins(context.Background())
	m.InitializePlugins(context.Background())

	assert.Equal(t, 1, p.initCalls)
}

func TestInitializePlugins_IsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	m := newTestManager(t, mux)

	p1 := &fakePlugin{id: "p1", routes: []string{"/widgets"}}
	p2 := &fakePlugin{id: "p2", initErr: errors.New("boom")}
	p3 := &fakePlugin{id: "p3", routes: []string{"stats"}}
	require.NoError(t, m.AddPlugin(p1, PluginOptions{Enabled: true}))
	require.NoError(t, m.AddPlugin(p2, PluginOptions{Enabled: true}))
	require.NoError(t, m.AddPlugin(p3, PluginOptions{Enabled: true}))

	m.InitializePlugins(context.Background())

	assert.Equal(t, 1, p1.initCalls)
	assert.Equal(t, 1, p3.initCalls, "plugins after the failing one still initialize")

	// Failed plugin's routes were never mounted; the others' were.
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/plugin/p1/widgets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/plugin/p3/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouteNamespacing(t *testing.T) {
	mux := http.NewServeMux()
	m := newTestManager(t, mux)

	// Leading slash and bare path must land on the identical namespaced
	// route, unreachable outside the plugin prefix.
	p := &fakePlugin{id: "p1", routes: []string{"/widgets", "gadgets"}}
	require.NoError(t, m.AddPlugin(p, PluginOptions{Enabled: true}))
	m.InitializePlugins(context.Background())

	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/plugin/p1/widgets", "/plugin/p1/gadgets"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "route %s", path)
	}

	resp, err := http.Get(srv.URL + "/widgets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode,
		"plugin route must not be reachable outside its namespace")
}

func TestAddPlugin_DuplicateID(t *testing.T) {
	m := newTestManager(t, nil)
	require.NoError(t, m.AddPlugin(&fakePlugin{id: "p1"}, PluginOptions{Enabled: true}))

	err := m.AddPlugin(&fakePlugin{id: "p1"}, PluginOptions{Enabled: true})
	assert.ErrorIs(t, err, types.ErrDuplicatePlugin)
}

func TestAddPlugin_DisabledNotActivated(t *testing.T) {
	m := newTestManager(t, nil)
	p := &fakePlugin{id: "p1"}
	require.NoError(t, m.AddPlugin(p, PluginOptions{Enabled: false}))

	assert.Empty(t, m.Plugins())

	m.InitializePlugins(context.Background())
	assert.Zero(t, p.initCalls)
}

func TestReinitializeWithDatabase_TargetsDeclaringPluginsOnly(t *testing.T) {
	m := newTestManager(t, nil)

	plain := &fakePlugin{id: "plain"}
	reinit := &reinitPlugin{fakePlugin: fakePlugin{id: "reinit"}}
	require.NoError(t, m.AddPlugin(plain, PluginOptions{Enabled: true}))
	require.NoError(t, m.AddPlugin(reinit, PluginOptions{Enabled: true}))

	m.InitializePlugins(context.Background())
	require.Equal(t, 1, plain.initCalls)

	db := &types.DB{}
	m.ReinitializeWithDatabase(context.Background(), db)

	assert.Equal(t, 1, reinit.reinitCalls)
	assert.Same(t, db, reinit.lastDB)
	assert.Equal(t, 1, plain.initCalls, "plugins without a hook are left alone")
}

func TestShutdownPlugins_BestEffort(t *testing.T) {
	m := newTestManager(t, nil)

	p1 := &reinitPlugin{fakePlugin: fakePlugin{id: "p1", shutdownErr: errors.New("stuck")}}
	p2 := &reinitPlugin{fakePlugin: fakePlugin{id: "p2"}}
	require.NoError(t, m.AddPlugin(p1, PluginOptions{Enabled: true}))
	require.NoError(t, m.AddPlugin(p2, PluginOptions{Enabled: true}))

	m.InitializePlugins(context.Background())
	m.ShutdownPlugins(context.Background())

	assert.Equal(t, 1, p1.shutdownCalls)
	assert.Equal(t, 1, p2.shutdownCalls, "one failing shutdown must not block the rest")
}

func TestDiscoverPlugins_ManifestMapping(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	require.NoError(t, registry.Register("sample", func() types.Plugin {
		return &fakePlugin{id: "sample"}
	}))

	writeManifest := func(name, content string) {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, name, manifestFileName), []byte(content), 0o644))
	}
	writeManifest("sample", "id: sample\n")
	// No registered factory for ghost; broken is unparseable.
	writeManifest("ghost", "id: ghost\n")
	writeManifest("broken", ":\tnot yaml\n{{")

	m := NewManager(Options{
		SearchPaths: []string{dir, filepath.Join(dir, "absent")},
		Registry:    registry,
		Logger:      logging.Discard(),
	})

	require.NoError(t, m.DiscoverPlugins(),
		"per-plugin load failures must not abort discovery")

	plugins := m.Plugins()
	require.Len(t, plugins, 1)
	assert.Equal(t, "sample", plugins[0].Meta().ID)

	// Absent search path was created.
	info, err := os.Stat(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDiscoverPlugins_DisabledViaManifest(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	require.NoError(t, registry.Register("off", func() types.Plugin {
		return &fakePlugin{id: "off"}
	}))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "off"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "off", manifestFileName),
		[]byte("id: off\nenabled: false\n"), 0o644))

	m := NewManager(Options{
		SearchPaths: []string{dir},
		Registry:    registry,
		Logger:      logging.Discard(),
	})
	require.NoError(t, m.DiscoverPlugins())
	assert.Empty(t, m.Plugins())
}
