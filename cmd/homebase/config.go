// Config loading for the homebase CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyListenAddr = "listen_addr"
	cfgKeyDataDir    = "data_dir"
	cfgKeyPluginDirs = "plugin_dirs"
	cfgKeyLogLevel   = "log_level"

	defaultListenAddr = ":8090"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Homebase configuration

# Address the HTTP server listens on
listen_addr: ":8090"

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Directories scanned for plugin manifests
# plugin_dirs:
#   - plugins

# Log level: debug, info, warn, error
log_level: info
`

// appConfig holds the values read from config.yaml.
type appConfig struct {
	ListenAddr string
	DataDir    string
	PluginDirs []string
	LogLevel   string
}

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on
// first run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*appConfig, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &appConfig{
		ListenAddr: v.GetString(cfgKeyListenAddr),
		DataDir:    v.GetString(cfgKeyDataDir),
		PluginDirs: v.GetStringSlice(cfgKeyPluginDirs),
		LogLevel:   v.GetString(cfgKeyLogLevel),
	}, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
