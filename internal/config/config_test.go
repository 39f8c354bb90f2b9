package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camera-fleet-engine/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.TickIntervalSec)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 45.0, cfg.Alerts.HighTempThresholdC)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log_level: debug
tick_interval: 10
store:
  driver: sqlite
  sqlite_path: /tmp/fleet.db
api:
  port: 9090
alerts:
  high_temp_threshold_c: 42.5
settings:
  storage_limit_gb: 250
  backup_frequency: weekly
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10, cfg.TickIntervalSec)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/fleet.db", cfg.Store.SQLitePath)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, 42.5, cfg.Alerts.HighTempThresholdC)
	assert.Equal(t, 250.0, cfg.Settings.StorageLimitGB)
	assert.Equal(t, "weekly", cfg.Settings.BackupFrequency)

	// Unspecified values keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 80.0, cfg.Alerts.StorageThresholdPct)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().TickIntervalSec, cfg.TickIntervalSec)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick interval", func(c *Config) { c.TickIntervalSec = 0 }},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "etcd" }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = StoreSQLite; c.Store.SQLitePath = "" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = StorePostgres }},
		{"bad port", func(c *Config) { c.API.Port = 70000 }},
		{"zero temp threshold", func(c *Config) { c.Alerts.HighTempThresholdC = 0 }},
		{"negative temp step", func(c *Config) { c.Simulator.MaxTempStepC = -0.5 }},
		{"negative occupancy step", func(c *Config) { c.Simulator.MaxOccupancyStep = -1 }},
		{"negative storage rate", func(c *Config) { c.Simulator.StoragePerHourGB = -0.1 }},
		{"bad settings", func(c *Config) { c.Settings.BackupFrequency = "never" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadSeedDevices(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.yaml")
	content := `
devices:
  - id: cam-entrance-01
    name: Entrance Cam
    location: Front entrance
    zone: entrance
    status: online
    motionDetection: true
    infrared: true
    temperatureC: 36.5
    uptimeHours: 120
    storageUsedGB: 12.5
  - id: cam-dock-01
    name: Dock Cam
    location: Loading dock
    zone: warehouse
    status: offline
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	devices, err := LoadSeedDevices(path)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	first := devices[0]
	assert.Equal(t, "cam-entrance-01", first.ID)
	assert.Equal(t, types.ZoneEntrance, first.Zone)
	assert.Equal(t, types.StatusOnline, first.Status)
	assert.True(t, first.Capabilities.MotionDetection)
	assert.True(t, first.Capabilities.Infrared)
	assert.Equal(t, 36.5, first.Telemetry.TemperatureC)
	assert.Equal(t, 12.5, first.Telemetry.StorageUsedGB)

	assert.Equal(t, types.StatusOffline, devices[1].Status)
}

func TestLoadSeedDevicesMissingFile(t *testing.T) {
	_, err := LoadSeedDevices("/nonexistent/devices.yaml")
	assert.Error(t, err)
}
