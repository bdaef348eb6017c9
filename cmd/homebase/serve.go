// Serve command: runs the HTTP server.
package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homebase-sh/homebase/internal/database"
	"github.com/homebase-sh/homebase/internal/logging"
	"github.com/homebase-sh/homebase/internal/plugin"
	"github.com/homebase-sh/homebase/internal/server"
	"github.com/homebase-sh/homebase/internal/settings"
)

// migrationsDirName is the subdirectory of the data directory that
// holds migration files.
const migrationsDirName = "migrations"

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the homebase server",
	Long: `Start the HTTP server. If a database configuration was saved by a
previous setup, the database is opened and migrated before serving;
otherwise the server starts unconfigured and waits for POST /db/setup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cleanup := logging.Setup(logLevel())
		defer cleanup()

		dataDir, err := resolveDataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}

		db := database.NewManager(database.Options{
			DataDir:       dataDir,
			MigrationsDir: filepath.Join(dataDir, migrationsDirName),
			Logger:        logger,
		})
		defer db.Close()

		mux := http.NewServeMux()
		plugins := plugin.NewManager(plugin.Options{
			SearchPaths: pluginDirs(dataDir),
			Registry:    builtinRegistry(),
			Mux:         mux,
			Logger:      logger,
		})
		if err := plugins.DiscoverPlugins(); err != nil {
			return fmt.Errorf("discover plugins: %w", err)
		}
		db.RegisterPluginTables(plugins.Plugins())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		initialized, err := db.Initialize(ctx)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		if initialized {
			handle, err := db.DB()
			if err != nil {
				return err
			}
			if err := settings.New(handle.Conn, logger).Seed(ctx); err != nil {
				return fmt.Errorf("seed settings: %w", err)
			}
			plugins.SetDB(handle)
			db.InitializePluginDatabases(ctx, handle, plugins.Plugins())
		} else {
			logger.Info("database not configured, waiting for setup request")
		}
		plugins.InitializePlugins(ctx)

		addr := flagListenAddr
		if addr == "" {
			addr = config.ListenAddr
		}
		srv := server.New(server.Options{
			Addr:     addr,
			Database: db,
			Plugins:  plugins,
			Mux:      mux,
			Logger:   logger,
		})
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddr, "listen", "", "listen address (default from config.yaml)")
}

// pluginDirs returns the plugin search paths from config.yaml, made
// absolute against the data directory, defaulting to <data>/plugins.
func pluginDirs(dataDir string) []string {
	dirs := config.PluginDirs
	if len(dirs) == 0 {
		dirs = []string{"plugins"}
	}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(dataDir, d)
		}
		out = append(out, d)
	}
	return out
}

// builtinRegistry returns the registry of compiled-in plugins. Empty
// for now; built-in plugins register their factories here.
func builtinRegistry() *plugin.Registry {
	return plugin.NewRegistry()
}
