// Package config loads the server configuration from a YAML/JSON file with
// environment-variable overrides for deployment settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Auth    AuthConfig    `json:"auth" yaml:"auth"`
	Rates   RatesConfig   `json:"rates" yaml:"rates"`
	Planner PlannerConfig `json:"planner" yaml:"planner"`
}

// ServerConfig contains HTTP server and storage settings.
type ServerConfig struct {
	Port   int    `json:"port" yaml:"port"`
	DBPath string `json:"db_path" yaml:"db_path"`
}

// AuthConfig contains session token settings.
type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret" yaml:"jwt_secret"`
	TokenDuration string `json:"token_duration" yaml:"token_duration"` // e.g. "24h"
}

// RatesConfig contains exchange-rate provider settings.
type RatesConfig struct {
	BaseURL     string `json:"base_url" yaml:"base_url"`
	Timeout     string `json:"timeout" yaml:"timeout"`
	MaxRetries  int    `json:"max_retries" yaml:"max_retries"`
	CacheTTL    string `json:"cache_ttl" yaml:"cache_ttl"`
	MinInterval string `json:"min_interval" yaml:"min_interval"`
}

// PlannerConfig contains lifecycle settings.
type PlannerConfig struct {
	UndoWindow   string `json:"undo_window" yaml:"undo_window"`
	ReminderCron string `json:"reminder_cron" yaml:"reminder_cron"` // empty disables reminders
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   8080,
			DBPath: "./data/savings.db",
		},
		Auth: AuthConfig{
			TokenDuration: "24h",
		},
		Rates: RatesConfig{
			BaseURL:     "https://api.coingecko.com/api/v3",
			Timeout:     "10s",
			MaxRetries:  3,
			CacheTTL:    "5m",
			MinInterval: "1s",
		},
		Planner: PlannerConfig{
			UndoWindow:   "24h",
			ReminderCron: "0 9 1 * *",
		},
	}
}

// Load reads the configuration: defaults, then the optional file at path,
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Try YAML first, fall back to JSON.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
				return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides deployment-sensitive settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("RATES_BASE_URL"); v != "" {
		c.Rates.BaseURL = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)")
	}
	if _, err := c.TokenDuration(); err != nil {
		return fmt.Errorf("auth.token_duration: %w", err)
	}
	if c.Rates.BaseURL == "" {
		return fmt.Errorf("rates.base_url is required")
	}
	for field, raw := range map[string]string{
		"rates.timeout":      c.Rates.Timeout,
		"rates.cache_ttl":    c.Rates.CacheTTL,
		"rates.min_interval": c.Rates.MinInterval,
		"planner.undo_window": c.Planner.UndoWindow,
	} {
		if _, err := parseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// Duration accessors. Validate has already checked these parse.

func (c *Config) TokenDuration() (time.Duration, error) { return parseDuration(c.Auth.TokenDuration) }
func (c *Config) RatesTimeout() time.Duration           { return mustDuration(c.Rates.Timeout) }
func (c *Config) RatesCacheTTL() time.Duration          { return mustDuration(c.Rates.CacheTTL) }
func (c *Config) RatesMinInterval() time.Duration       { return mustDuration(c.Rates.MinInterval) }
func (c *Config) UndoWindow() time.Duration             { return mustDuration(c.Planner.UndoWindow) }

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func mustDuration(raw string) time.Duration {
	d, _ := parseDuration(raw)
	return d
}
