// Init command: configures and initializes the database from the CLI.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/homebase-sh/homebase/internal/database"
	"github.com/homebase-sh/homebase/internal/logging"
	"github.com/homebase-sh/homebase/internal/settings"
	"github.com/homebase-sh/homebase/pkg/types"
)

var (
	flagInitBackend string
	flagInitDBPath  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure and initialize the database",
	Long: `Write the database configuration, create the database file, apply the
schema and run pending migrations. Running init on an already
initialized instance is a no-op.`,
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

		cfg := types.DatabaseConfig{
			Backend: flagInitBackend,
			Path:    flagInitDBPath,
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ok, err := db.SetupNewDatabase(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("setup database: %w", err)
		}
		if !ok {
			return fmt.Errorf("database setup did not complete")
		}

		handle, err := db.DB()
		if err != nil {
			return err
		}
		if err := settings.New(handle.Conn, logger).Seed(cmd.Context()); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}

		fmt.Println("Database initialized successfully")
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&flagInitBackend, "backend", types.BackendSQLite, "database backend")
	initCmd.Flags().StringVar(&flagInitDBPath, "db-path", "data/homebase.db", "database file path, relative to the data directory")
}
