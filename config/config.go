// Package config provides configuration management for Proxy Tray.
// It handles loading, saving, and managing application settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yllada/proxy-tray/common"
)

// Config represents the application configuration.
// All settings are persisted to a YAML file in the application-data root.
type Config struct {
	// ClientCommand is the external client executable and its fixed leading
	// arguments. The selected configuration is appended as "-c <file>".
	ClientCommand []string `yaml:"client_command"`
	// StopTimeout bounds graceful termination before the client is killed.
	StopTimeout time.Duration `yaml:"stop_timeout"`
	// StoreBackend selects the state store: "yaml" or "sqlite".
	StoreBackend string `yaml:"store_backend"`
	// ShowNotifications enables desktop notifications for client errors.
	ShowNotifications bool `yaml:"show_notifications"`
	// WatchStateFile reloads the state when the state file is edited
	// by another program.
	WatchStateFile bool `yaml:"watch_state_file"`
	// SecureSecrets keeps the payload keys named in SecretKeys in the
	// keyring instead of the state file.
	SecureSecrets bool `yaml:"secure_secrets"`
	// SecretKeys lists payload keys treated as secrets.
	SecretKeys []string `yaml:"secret_keys"`
	// LogLevel sets the minimum log level: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ClientCommand:     []string{"sslocal"},
		StopTimeout:       common.StopTimeout,
		StoreBackend:      common.BackendYAML,
		ShowNotifications: true,
		WatchStateFile:    true,
		SecureSecrets:     true,
		SecretKeys:        []string{"password"},
		LogLevel:          "info",
	}
}

// Load loads the configuration from dataDir.
// If the file doesn't exist, it creates one with default values.
func Load(dataDir string) (*Config, error) {
	configPath := Path(dataDir)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(dataDir); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	config := *DefaultConfig()
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("%w: error parsing %s: %v", common.ErrConfigLoad, configPath, err)
	}

	config.validate()
	return &config, nil
}

// validate replaces invalid values with their defaults.
func (c *Config) validate() {
	defaults := DefaultConfig()

	if len(c.ClientCommand) == 0 || strings.TrimSpace(c.ClientCommand[0]) == "" {
		common.LogWarn("Config: client_command is empty, using %v", defaults.ClientCommand)
		c.ClientCommand = defaults.ClientCommand
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaults.StopTimeout
	}
	switch c.StoreBackend {
	case common.BackendYAML, common.BackendSQLite:
	default:
		common.LogWarn("Config: unknown store_backend %q, using %s", c.StoreBackend, defaults.StoreBackend)
		c.StoreBackend = defaults.StoreBackend
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		c.LogLevel = defaults.LogLevel
	}
}

// Save saves the configuration to dataDir.
func (c *Config) Save(dataDir string) error {
	configPath := Path(dataDir)

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("%w: error creating config directory: %v", common.ErrConfigSave, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: error serializing configuration: %v", common.ErrConfigSave, err)
	}

	if err := common.WriteFileAtomic(configPath, data, 0600); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfigSave, err)
	}

	return nil
}

// Path returns the settings file path below dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, common.SettingsFileName)
}
