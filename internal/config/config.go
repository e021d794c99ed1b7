// Package config loads horloge's YAML configuration file and applies
// environment-variable overrides on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Config holds the full runtime configuration for every horloge
// component (CLI entrypoints, the timer subsystem, the executor pool).
type Config struct {
	InstanceName string         `yaml:"instance_name"`
	BasePath     string         `yaml:"base_path"`
	Database     DatabaseConfig `yaml:"database"`
	Extension    ExtensionConfig `yaml:"extension"`
	Queue        QueueConfig    `yaml:"queue"`
	Executor     ExecutorConfig `yaml:"executor"`
	AdminAPI     AdminAPIConfig `yaml:"admin_api"`
	Logger       LoggerConfig   `yaml:"logger"`
}

// DatabaseConfig describes the Postgres session every component opens,
// mirroring original_source's SPI_DATABASE_NAME/SPI_USER_NAME constants.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN renders the libpq-style connection string pgx expects. An empty
// user or password is left out, so the driver's own default applies.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", d.Host, d.Port, d.Name, d.SSLMode)
	if d.User != "" {
		dsn += " user=" + d.User
	}
	if d.Password != "" {
		dsn += " password=" + d.Password
	}
	return dsn
}

// ExtensionConfig names the catalog schema and NOTIFY channels.
type ExtensionConfig struct {
	SchemaName      string `yaml:"schema_name"`
	EventChannel    string `yaml:"event_channel"`
	ControlChannel  string `yaml:"control_channel"`
}

// QueueConfig sizes the two bounded event queues (spec.md §4.2).
type QueueConfig struct {
	Capacity       int `yaml:"capacity"`
	EnqueueRetries int `yaml:"enqueue_retries"`
}

// ExecutorConfig controls the fire-event worker pool (spec.md §4.7).
// WorkerCount == 0 means "derive from hardware parallelism" (§5).
type ExecutorConfig struct {
	WorkerCount int `yaml:"worker_count"`
}

// AdminAPIConfig controls the read-only gin status surface.
type AdminAPIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggerConfig mirrors internal/logger.Config field-for-field.
type LoggerConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Directory     string `yaml:"directory"`
	MaxSize       int    `yaml:"max_size"`
	MaxAge        int    `yaml:"max_age"`
	MaxBackups    int    `yaml:"max_backups"`
	EnableConsole bool   `yaml:"enable_console"`
}

// LoadConfig reads and validates the YAML config at path, applying
// defaults and then environment overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.BasePath == "" {
		cfg.BasePath = "."
	}

	setDefaults(&cfg)
	cfg.LoadFromEnv()
	resolvePaths(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// GetPIDFilePath returns the PID file path for this instance
// (<base_path>/<instance_name>.pid). No horloge command writes to it.
func (c *Config) GetPIDFilePath() string {
	return filepath.Join(c.BasePath, c.InstanceName+".pid")
}

func setDefaults(cfg *Config) {
	if cfg.InstanceName == "" {
		cfg.InstanceName = "horloge"
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "horloge"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Extension.SchemaName == "" {
		cfg.Extension.SchemaName = "horloge"
	}
	if cfg.Extension.EventChannel == "" {
		cfg.Extension.EventChannel = "horloge_events"
	}
	if cfg.Extension.ControlChannel == "" {
		cfg.Extension.ControlChannel = "horloge_control"
	}

	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 128
	}
	if cfg.Queue.EnqueueRetries == 0 {
		cfg.Queue.EnqueueRetries = 64
	}

	if cfg.AdminAPI.Host == "" {
		cfg.AdminAPI.Host = "localhost"
	}
	if cfg.AdminAPI.Port == 0 {
		cfg.AdminAPI.Port = 27555
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
	if cfg.Logger.Directory == "" {
		cfg.Logger.Directory = "logs"
	}
	if cfg.Logger.MaxSize == 0 {
		cfg.Logger.MaxSize = 100
	}
	if cfg.Logger.MaxAge == 0 {
		cfg.Logger.MaxAge = 30
	}
	if cfg.Logger.MaxBackups == 0 {
		cfg.Logger.MaxBackups = 10
	}
}

func resolvePaths(cfg *Config) {
	if !filepath.IsAbs(cfg.Logger.Directory) {
		cfg.Logger.Directory = filepath.Join(cfg.BasePath, cfg.Logger.Directory)
	}
}
