// Package config handles configuration loading and validation for errq.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AppVersion string         `yaml:"app_version"`
	UserID     string         `yaml:"user_id"`
	Reporter   ReporterConfig `yaml:"reporter"`
	Delivery   DeliveryConfig `yaml:"delivery"`
	Netmon     NetmonConfig   `yaml:"netmon"`
	Database   DatabaseConfig `yaml:"database"`
	DataDir    string         `yaml:"-"` // set by caller, not from config file
}

// ReporterConfig controls the delivery loop.
type ReporterConfig struct {
	BusyInterval       time.Duration `yaml:"busy_interval"`
	IdleInterval       time.Duration `yaml:"idle_interval"`
	GateOnConnectivity bool          `yaml:"gate_on_connectivity"` // skip dispatch while offline
	SaveInterval       time.Duration `yaml:"save_interval"`
}

// DeliveryConfig describes where records are sent. An empty endpoint means
// records are only logged.
type DeliveryConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NetmonConfig holds connectivity probe settings.
type NetmonConfig struct {
	Host     string        `yaml:"host"`     // host:port dialed by the probe
	Interval time.Duration `yaml:"interval"` // 0s probes once at startup
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds SQLite pool settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		AppVersion: "1.0.0",
		UserID:     "-1",
		Reporter: ReporterConfig{
			BusyInterval: 500 * time.Millisecond,
			IdleInterval: 5 * time.Second,
			SaveInterval: 30 * time.Second,
		},
		Delivery: DeliveryConfig{
			Timeout: 10 * time.Second,
		},
		Netmon: NetmonConfig{
			Host:     "www.baidu.com:443",
			Interval: 30 * time.Second,
			Timeout:  3 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.AppVersion == "" {
		c.AppVersion = defaults.AppVersion
	}
	if c.UserID == "" {
		c.UserID = defaults.UserID
	}
	if c.Reporter.BusyInterval == 0 {
		c.Reporter.BusyInterval = defaults.Reporter.BusyInterval
	}
	if c.Reporter.IdleInterval == 0 {
		c.Reporter.IdleInterval = defaults.Reporter.IdleInterval
	}
	if c.Reporter.SaveInterval == 0 {
		c.Reporter.SaveInterval = defaults.Reporter.SaveInterval
	}
	if c.Delivery.Timeout == 0 {
		c.Delivery.Timeout = defaults.Delivery.Timeout
	}
	if c.Netmon.Host == "" {
		c.Netmon.Host = defaults.Netmon.Host
	}
	if c.Netmon.Timeout == 0 {
		c.Netmon.Timeout = defaults.Netmon.Timeout
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Reporter.BusyInterval < 0 {
		return fmt.Errorf("reporter.busy_interval cannot be negative")
	}
	if c.Reporter.IdleInterval < 0 {
		return fmt.Errorf("reporter.idle_interval cannot be negative")
	}
	if c.Reporter.SaveInterval < 0 {
		return fmt.Errorf("reporter.save_interval cannot be negative")
	}
	if c.Delivery.Timeout < 0 {
		return fmt.Errorf("delivery.timeout cannot be negative")
	}
	if c.Netmon.Interval < 0 {
		return fmt.Errorf("netmon.interval cannot be negative")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	return nil
}

// CacheDir returns the directory holding the record queue and model files.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// RecordsFile returns the path to the persisted record queue.
func (c *Config) RecordsFile() string {
	return filepath.Join(c.CacheDir(), "SPErrors.dat")
}

// ModelsDir returns the root directory for per-model files.
func (c *Config) ModelsDir() string {
	return filepath.Join(c.CacheDir(), "SPModels")
}

// DatabaseFile returns the path to the settings database.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, "errq.db")
}
