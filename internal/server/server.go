// Package server exposes the HTTP surface: database status and setup,
// settings, health and the namespaced plugin routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/homebase-sh/homebase/internal/database"
	"github.com/homebase-sh/homebase/internal/plugin"
	"github.com/homebase-sh/homebase/internal/settings"
	"github.com/homebase-sh/homebase/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Addr     string
	Database *database.Manager
	Plugins  *plugin.Manager

	// Mux must be the same mux plugin routes were mounted on.
	Mux *http.ServeMux

	Logger *slog.Logger
}

// Server serves the backend API.
type Server struct {
	addr    string
	db      *database.Manager
	plugins *plugin.Manager
	mux     *http.ServeMux
	logger  *slog.Logger
}

// New creates a server and registers the core routes on the mux.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := opts.Mux
	if mux == nil {
		mux = http.NewServeMux()
	}
	s := &Server{
		addr:    opts.Addr,
		db:      opts.Database,
		plugins: opts.Plugins,
		mux:     mux,
		logger:  logger,
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /db/status", s.handleDBStatus)
	s.mux.HandleFunc("POST /db/setup", s.handleDBSetup)
	s.mux.HandleFunc("GET /settings", s.handleSettingsList)
	s.mux.HandleFunc("GET /settings/{key}", s.handleSettingGet)
	s.mux.HandleFunc("PUT /settings/{key}", s.handleSettingPut)
	s.mux.HandleFunc("DELETE /settings/{key}", s.handleSettingDelete)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.plugins != nil {
		s.plugins.ShutdownPlugins(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDBStatus reports the lifecycle state. It never fails, whatever
// state the store is in.
func (s *Server) handleDBStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.db.Status())
}

// handleDBSetup configures and initializes the database from the posted
// configuration. Repeating the call with the store already running is a
// successful no-op.
func (s *Server) handleDBSetup(w http.ResponseWriter, r *http.Request) {
	var cfg types.DatabaseConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ok, err := s.db.SetupNewDatabase(r.Context(), cfg)
	if err != nil || !ok {
		if err == nil {
			err = errors.New("database setup did not complete")
		}
		s.logger.Error("database setup failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	db, err := s.db.DB()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := settings.New(db.Conn, s.logger).Seed(r.Context()); err != nil {
		s.logger.Error("seeding default settings failed", "error", err)
	}
	if s.plugins != nil {
		s.db.InitializePluginDatabases(r.Context(), db, s.plugins.Plugins())
		s.plugins.ReinitializeWithDatabase(r.Context(), db)
	}

	writeJSON(w, http.StatusOK, s.db.Status())
}

// settingsService returns a service bound to the live connection, or an
// HTTP error when the database is not ready.
func (s *Server) settingsService(w http.ResponseWriter) (*settings.Service, bool) {
	conn, err := s.db.Conn()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("database not initialized, run setup first"))
		return nil, false
	}
	return settings.New(conn, s.logger), true
}

func (s *Server) handleSettingsList(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.settingsService(w)
	if !ok {
		return
	}
	list, err := svc.List(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		if errors.Is(err, types.ErrGroupNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []settings.Setting{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSettingGet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.settingsService(w)
	if !ok {
		return
	}
	st, err := svc.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, types.ErrSettingNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type settingUpdate struct {
	Value     string `json:"value"`
	ValueType string `json:"valueType"`
}

func (s *Server) handleSettingPut(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.settingsService(w)
	if !ok {
		return
	}
	var upd settingUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	st, err := svc.Set(r.Context(), r.PathValue("key"), upd.Value, upd.ValueType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSettingDelete(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.settingsService(w)
	if !ok {
		return
	}
	if err := svc.Delete(r.Context(), r.PathValue("key")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
