// Package config defines the Nudge application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MinGuardInterval is the smallest allowed lead time between "now" and a
// reminder's trigger instant. Configured values below it are raised to it.
const MinGuardInterval = 60 * time.Second

// Config is the top-level Nudge configuration.
type Config struct {
	Server   ServerConfig `json:"server" yaml:"server"`
	Auth     AuthConfig   `json:"auth" yaml:"auth"`
	Notify   NotifyConfig `json:"notify" yaml:"notify"`
	DataDir  string       `json:"data_dir" yaml:"data_dir"`
	LogLevel string       `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8430"
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt hash
}

// NotifyConfig controls the reminder lifecycle manager.
type NotifyConfig struct {
	// Platform selects the scheduling adapter ("local", "none").
	Platform string `json:"platform" yaml:"platform"`

	// GuardIntervalSeconds is the minimum lead time for new reminders.
	// Values below 60 are raised to 60.
	GuardIntervalSeconds int `json:"guard_interval_seconds" yaml:"guard_interval_seconds"`

	// ReconcileSchedule is a cron spec for the periodic reconciliation of
	// pending reminders against the task store. Empty disables the loop.
	ReconcileSchedule string `json:"reconcile_schedule" yaml:"reconcile_schedule"`
}

// GuardInterval returns the effective guard interval.
func (n NotifyConfig) GuardInterval() time.Duration {
	d := time.Duration(n.GuardIntervalSeconds) * time.Second
	if d < MinGuardInterval {
		return MinGuardInterval
	}
	return d
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8430",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Notify: NotifyConfig{
			Platform:             "local",
			GuardIntervalSeconds: 60,
			ReconcileSchedule:    "@every 15m",
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadOrDefault loads the config file if it exists, otherwise returns the
// defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(path)
}

// applyEnv overlays secret-bearing settings from the environment so they can
// stay out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("NUDGE_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("NUDGE_ADMIN_PASS_HASH"); v != "" {
		c.Auth.AdminPass = v
	}
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
