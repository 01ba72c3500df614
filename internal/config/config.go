// Package config loads engine configuration from TOML. A default
// configuration ships embedded in the binary; a user file at
// ~/.relink/relink.toml (or an explicit path) overrides it.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed relink.toml
var defaultConfigFS embed.FS

// Config is the complete engine configuration.
type Config struct {
	Scan    ScanConfig    `toml:"scan"`
	Watch   WatchConfig   `toml:"watch"`
	Bridge  BridgeConfig  `toml:"bridge"`
	Library LibraryConfig `toml:"library"`
	Log     LogConfig     `toml:"log"`
}

type ScanConfig struct {
	// IgnoreHiddenLayers is the default for scan requests that leave
	// the flag unset.
	IgnoreHiddenLayers bool `toml:"ignore_hidden_layers"`
	// FailOpenVisibility counts nodes whose visibility walk fails as
	// visible instead of hidden.
	FailOpenVisibility bool `toml:"fail_open_visibility"`
}

type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

// Debounce returns the watch debounce window.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

type BridgeConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the listen address for the panel server.
func (b BridgeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

type LibraryConfig struct {
	// ServiceURL is the team token service base URL. Empty disables
	// remote activation; remote bindings then classify as missing.
	ServiceURL string `toml:"service_url"`
	// CatalogPath points at the enabled-libraries manifest. Empty means
	// no gating.
	CatalogPath string `toml:"catalog_path"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig loads configuration from the given TOML file, falling
// back to the embedded default when the path is empty or missing.
func LoadConfig(configPath string) (*Config, error) {
	var configData []byte
	var err error

	if configPath == "" || !fileExists(configPath) {
		configData, err = defaultConfigFS.ReadFile("relink.toml")
		if err != nil {
			return nil, fmt.Errorf("failed to load default config: %w", err)
		}
	} else {
		configData, err = os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var config Config
	if err := toml.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	setDefaults(&config)
	return &config, nil
}

// LoadDefaultConfig loads the embedded default configuration.
func LoadDefaultConfig() (*Config, error) {
	return LoadConfig("")
}

// GetUserConfigPath returns the path where user config should be stored.
func GetUserConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".relink", "relink.toml")
}

// CreateUserConfig writes the default configuration to the user config
// path so it can be edited.
func CreateUserConfig() error {
	configPath := GetUserConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configData, err := defaultConfigFS.ReadFile("relink.toml")
	if err != nil {
		return fmt.Errorf("failed to read default config: %w", err)
	}

	if err := os.WriteFile(configPath, configData, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}
	return nil
}

func setDefaults(config *Config) {
	if config.Watch.DebounceMs <= 0 {
		config.Watch.DebounceMs = 400
	}
	if config.Bridge.Host == "" {
		config.Bridge.Host = "127.0.0.1"
	}
	if config.Bridge.Port <= 0 {
		config.Bridge.Port = 7373
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
