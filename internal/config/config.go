package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"camera-fleet-engine/internal/settings"
)

// Store driver names
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// StoreConfig selects and configures the persistence store
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// RedisConfig configures the optional redis alert publisher
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	Queue    string `mapstructure:"queue"`
}

// APIConfig configures the HTTP API server
type APIConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds
}

// AlertsConfig configures the alert engine thresholds
type AlertsConfig struct {
	HighTempThresholdC  float64 `mapstructure:"high_temp_threshold_c"`
	StorageThresholdGB  float64 `mapstructure:"storage_threshold_gb"`
	StorageThresholdPct float64 `mapstructure:"storage_threshold_pct"`
	RealertAfterAck     bool    `mapstructure:"realert_after_ack"`
}

// SimulatorConfig configures the simulated telemetry source
type SimulatorConfig struct {
	MaxTempStepC     float64 `mapstructure:"max_temp_step_c"`
	MaxOccupancyStep int     `mapstructure:"max_occupancy_step"`
	StoragePerHourGB float64 `mapstructure:"storage_per_hour_gb"`
	Seed             int64   `mapstructure:"seed"`
}

// Config represents the engine configuration
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	TickIntervalSec int    `mapstructure:"tick_interval"` // seconds
	SeedFile        string `mapstructure:"seed_file"`

	Store     StoreConfig             `mapstructure:"store"`
	Redis     RedisConfig             `mapstructure:"redis"`
	API       APIConfig               `mapstructure:"api"`
	Alerts    AlertsConfig            `mapstructure:"alerts"`
	Simulator SimulatorConfig         `mapstructure:"simulator"`
	Settings  settings.SystemSettings `mapstructure:"settings"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		TickIntervalSec: 5,
		Store: StoreConfig{
			Driver:     StoreMemory,
			SQLitePath: "./camera-fleet.db",
		},
		Redis: RedisConfig{
			Addr:  "localhost:6379",
			Queue: "camera-fleet:alerts",
		},
		API: APIConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
		},
		Alerts: AlertsConfig{
			HighTempThresholdC:  45.0,
			StorageThresholdGB:  80.0,
			StorageThresholdPct: 80.0,
		},
		Simulator: SimulatorConfig{
			MaxTempStepC:     1.5,
			MaxOccupancyStep: 2,
			StoragePerHourGB: 0.4,
		},
		Settings: settings.Defaults(),
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/camera-fleet-engine")
	}

	v.SetEnvPrefix("CAMFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults apply
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("tick_interval", cfg.TickIntervalSec)
	v.SetDefault("seed_file", cfg.SeedFile)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.sqlite_path", cfg.Store.SQLitePath)
	v.SetDefault("store.postgres_dsn", cfg.Store.PostgresDSN)
	v.SetDefault("redis.enabled", cfg.Redis.Enabled)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.database", cfg.Redis.Database)
	v.SetDefault("redis.queue", cfg.Redis.Queue)
	v.SetDefault("api.host", cfg.API.Host)
	v.SetDefault("api.port", cfg.API.Port)
	v.SetDefault("api.read_timeout", cfg.API.ReadTimeout)
	v.SetDefault("api.write_timeout", cfg.API.WriteTimeout)
	v.SetDefault("api.idle_timeout", cfg.API.IdleTimeout)
	v.SetDefault("alerts.high_temp_threshold_c", cfg.Alerts.HighTempThresholdC)
	v.SetDefault("alerts.storage_threshold_gb", cfg.Alerts.StorageThresholdGB)
	v.SetDefault("alerts.storage_threshold_pct", cfg.Alerts.StorageThresholdPct)
	v.SetDefault("alerts.realert_after_ack", cfg.Alerts.RealertAfterAck)
	v.SetDefault("simulator.max_temp_step_c", cfg.Simulator.MaxTempStepC)
	v.SetDefault("simulator.max_occupancy_step", cfg.Simulator.MaxOccupancyStep)
	v.SetDefault("simulator.storage_per_hour_gb", cfg.Simulator.StoragePerHourGB)
	v.SetDefault("settings.storage_limit_gb", cfg.Settings.StorageLimitGB)
	v.SetDefault("settings.backup_frequency", cfg.Settings.BackupFrequency)
	v.SetDefault("settings.recording_retention_days", cfg.Settings.RecordingRetentionDays)
	v.SetDefault("settings.alerts_enabled", cfg.Settings.AlertsEnabled)
	v.SetDefault("settings.motion_detection", cfg.Settings.MotionDetection)
	v.SetDefault("settings.video_quality", cfg.Settings.VideoQuality)
	v.SetDefault("settings.stream_bitrate", cfg.Settings.StreamBitrate)
}

// TickInterval returns the telemetry cadence as a duration
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSec) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.TickIntervalSec <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of: memory, sqlite, postgres")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535")
	}

	if c.Alerts.HighTempThresholdC <= 0 {
		return fmt.Errorf("alerts.high_temp_threshold_c must be positive")
	}

	if c.Simulator.MaxTempStepC < 0 {
		return fmt.Errorf("simulator.max_temp_step_c cannot be negative")
	}
	if c.Simulator.MaxOccupancyStep < 0 {
		return fmt.Errorf("simulator.max_occupancy_step cannot be negative")
	}
	if c.Simulator.StoragePerHourGB < 0 {
		return fmt.Errorf("simulator.storage_per_hour_gb cannot be negative")
	}

	if err := c.Settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	return nil
}
