// Package config loads and validates console configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Poll          PollConfig          `mapstructure:"poll"`
	History       HistoryConfig       `mapstructure:"history"`
	SearchHistory SearchHistoryConfig `mapstructure:"search_history"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig controls the console HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// BackendConfig points at the crawl backend API.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PollConfig controls the crawl status poller.
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// HistoryConfig governs the history view.
type HistoryConfig struct {
	// Cap limits how many of the most recent records are kept in memory.
	Cap     int `mapstructure:"cap"`
	PerPage int `mapstructure:"per_page"`
}

// SearchHistoryConfig locates the persisted search-history entries.
type SearchHistoryConfig struct {
	Dir   string `mapstructure:"dir"`
	Depth int    `mapstructure:"depth"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ADCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout_seconds", 15)
	v.SetDefault("poll.interval_seconds", 3)
	v.SetDefault("history.cap", 500)
	v.SetDefault("history.per_page", 20)
	v.SetDefault("search_history.dir", "search-history")
	v.SetDefault("search_history.depth", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be set")
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return fmt.Errorf("backend.timeout_seconds must be > 0")
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be > 0")
	}
	if c.History.PerPage <= 0 {
		return fmt.Errorf("history.per_page must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// BackendTimeout converts the backend timeout config into a duration.
func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// PollInterval converts the poll interval config into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}
