// Root command for the homebase CLI.
package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/homebase-sh/homebase/internal/paths"
	"github.com/homebase-sh/homebase/pkg/homebase"
)

// Exit codes: 0 success, 1 user error, 2 system error.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagLogLevel  string
)

// configDataDir holds the data_dir value loaded from config.yaml.
// Set by PersistentPreRunE so all subcommands can use it.
var configDataDir string

// config is the loaded configuration, available to all subcommands.
var config *appConfig

var rootCmd = &cobra.Command{
	Use:     "homebase",
	Short:   "Homebase is a self-hosted application backend",
	Version: homebase.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		config, err = loadConfig(configDir)
		if err != nil {
			return err
		}

		configDataDir = config.DataDir
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.homebase-data)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
}

// resolveDataDir returns the data directory path following the
// precedence chain: --data-dir flag > config.yaml data_dir >
// HOMEBASE_DATA_DIR env > default $(CWD)/.homebase-data.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence chain: --config-dir flag > HOMEBASE_CONFIG_DIR env >
// platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// logLevel maps the --log-level flag, falling back to the config file
// value and then to info.
func logLevel() slog.Level {
	name := flagLogLevel
	if name == "" && config != nil {
		name = config.LogLevel
	}
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
