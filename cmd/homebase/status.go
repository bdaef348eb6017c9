// Status command: reports the database lifecycle state.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/homebase-sh/homebase/internal/database"
	"github.com/homebase-sh/homebase/internal/logging"
)

var flagStatusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := resolveDataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}

		db := database.NewManager(database.Options{
			DataDir:       dataDir,
			MigrationsDir: filepath.Join(dataDir, migrationsDirName),
			Logger:        logging.Discard(),
		})
		defer db.Close()

		// Status reflects the persisted configuration even without
		// opening the database; initialize best effort to report it.
		if _, err := db.Initialize(cmd.Context()); err != nil {
			fmt.Fprintln(os.Stderr, "warning: initialization failed:", err)
		}
		st := db.Status()

		if flagStatusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Println("configured: ", st.Configured)
		fmt.Println("initialized:", st.Initialized)
		if st.Dialect != "" {
			fmt.Println("dialect:    ", st.Dialect)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&flagStatusJSON, "json", false, "output as JSON")
}
