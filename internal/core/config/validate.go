package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration
// including endpoint syntax, probe address and file accessibility. The
// configPath argument specifies the config file location to validate (empty
// string skips config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		criterio.Run("delivery.endpoint", c.Delivery.Endpoint, isHTTPURL),
		criterio.Run("netmon.host", c.Netmon.Host, isHostPort),
		c.validateCadence(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Delivery.Endpoint == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Delivery",
			Item:     "endpoint",
			Message:  "no endpoint configured, records are only logged",
		})
	}
	if c.Reporter.GateOnConnectivity && c.Netmon.Interval == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Reporter",
			Item:     "gate_on_connectivity",
			Message:  "gating is enabled but netmon.interval is 0s, connectivity is probed once at startup",
		})
	}

	return warnings
}

// validateFileAccess checks config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("data_dir.cache", c.CacheDir(), isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// validateCadence checks the reporter intervals relate sensibly.
func (c *Config) validateCadence() error {
	var errs criterio.FieldErrorsBuilder
	if c.Reporter.BusyInterval > c.Reporter.IdleInterval {
		errs = errs.Append("reporter.busy_interval",
			fmt.Errorf("%s is longer than idle_interval %s", c.Reporter.BusyInterval, c.Reporter.IdleInterval))
	}
	return errs.ToError()
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(filepath.Clean(path))
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func isHTTPURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func isHostPort(addr string) error {
	if addr == "" {
		return fmt.Errorf("cannot be empty")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	if host == "" || port == "" {
		return fmt.Errorf("expected host:port, got %q", addr)
	}
	return nil
}
