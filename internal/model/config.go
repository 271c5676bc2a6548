package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8470".
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// CacheConfig holds record-cache settings.
type CacheConfig struct {
	// MaxAgeSec is the TTL for cached records, in seconds.
	MaxAgeSec int `mapstructure:"max_age_sec" yaml:"max_age_sec"`

	// DBPath is the SQLite file backing the cache across restarts.
	// Empty disables persistence.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// FetchConfig holds attachment-download settings.
type FetchConfig struct {
	// TimeoutSec bounds a single hydration fetch, in seconds.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache"`
	Fetch  FetchConfig  `mapstructure:"fetch" yaml:"fetch"`
}

// MaxAge returns the cache TTL as a duration.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSec) * time.Second
}

// Timeout returns the fetch timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailmate/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailmate", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Addr: ":8470"},
		Cache: CacheConfig{
			MaxAgeSec: 300,
			DBPath:    "",
		},
		Fetch: FetchConfig{TimeoutSec: 30},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("server.addr", ":8470")
	v.SetDefault("cache.max_age_sec", 300)
	v.SetDefault("cache.db_path", "")
	v.SetDefault("fetch.timeout_sec", 30)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("cache", cfg.Cache)
	v.Set("fetch", cfg.Fetch)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
