package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "nope.yaml"), dataDir)
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = dataDir
	assert.Equal(t, &want, cfg)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("", "/tmp/errq")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/errq", cfg.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.Reporter.BusyInterval)
	assert.Equal(t, 5*time.Second, cfg.Reporter.IdleInterval)
	assert.False(t, cfg.Reporter.GateOnConnectivity)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
app_version: 3.1.4
user_id: u-42
reporter:
  busy_interval: 250ms
  idle_interval: 2s
  gate_on_connectivity: true
delivery:
  endpoint: https://errors.example.com/v1/records
  timeout: 4s
netmon:
  host: example.com:80
database:
  busy_timeout: 1000
`)

	cfg, err := Load(path, "/data")
	require.NoError(t, err)

	assert.Equal(t, "3.1.4", cfg.AppVersion)
	assert.Equal(t, "u-42", cfg.UserID)
	assert.Equal(t, 250*time.Millisecond, cfg.Reporter.BusyInterval)
	assert.Equal(t, 2*time.Second, cfg.Reporter.IdleInterval)
	assert.True(t, cfg.Reporter.GateOnConnectivity)
	assert.Equal(t, "https://errors.example.com/v1/records", cfg.Delivery.Endpoint)
	assert.Equal(t, 4*time.Second, cfg.Delivery.Timeout)
	assert.Equal(t, "example.com:80", cfg.Netmon.Host)
	assert.Equal(t, 1000, cfg.Database.BusyTimeout)
	assert.Equal(t, "/data", cfg.DataDir, "data dir is never read from the file")

	// unset keys fall back to defaults
	defaults := DefaultConfig()
	assert.Equal(t, defaults.Reporter.SaveInterval, cfg.Reporter.SaveInterval)
	assert.Equal(t, defaults.Netmon.Interval, cfg.Netmon.Interval)
	assert.Equal(t, defaults.Database.MaxOpenConns, cfg.Database.MaxOpenConns)
}

func TestLoad_ZeroNetmonIntervalDisablesPolling(t *testing.T) {
	path := writeConfig(t, "reporter:\n  gate_on_connectivity: true\nnetmon:\n  interval: 0s\n")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, cfg.Netmon.Interval)

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "Reporter", warnings[1].Category)
	assert.Equal(t, "gate_on_connectivity", warnings[1].Item)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "reporter: [not, a, map")

	_, err := Load(path, "/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "reporter:\n  busy_interval: -1s\n")

	_, err := Load(path, "/data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reporter.busy_interval")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: "data directory"},
		{name: "negative idle", mutate: func(c *Config) { c.Reporter.IdleInterval = -time.Second }, wantErr: "idle_interval"},
		{name: "negative save", mutate: func(c *Config) { c.Reporter.SaveInterval = -time.Second }, wantErr: "save_interval"},
		{name: "negative timeout", mutate: func(c *Config) { c.Delivery.Timeout = -time.Second }, wantErr: "delivery.timeout"},
		{name: "no connections", mutate: func(c *Config) { c.Database.MaxOpenConns = 0 }, wantErr: "max_open_conns"},
		{name: "negative busy timeout", mutate: func(c *Config) { c.Database.BusyTimeout = -1 }, wantErr: "busy_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = "/data"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/errq"

	assert.Equal(t, "/var/lib/errq/cache", cfg.CacheDir())
	assert.Equal(t, "/var/lib/errq/cache/SPErrors.dat", cfg.RecordsFile())
	assert.Equal(t, "/var/lib/errq/cache/SPModels", cfg.ModelsDir())
	assert.Equal(t, "/var/lib/errq/errq.db", cfg.DatabaseFile())
}
