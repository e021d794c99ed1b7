package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFromEnv overrides config fields from HORLOGE_* environment
// variables, the same override-after-defaults ordering the teacher
// uses for its own ATOM_* variables.
func (c *Config) LoadFromEnv() {
	if env := os.Getenv("HORLOGE_INSTANCE_NAME"); env != "" {
		c.InstanceName = env
	}
	if env := os.Getenv("HORLOGE_BASE_PATH"); env != "" {
		c.BasePath = env
	}

	if env := os.Getenv("HORLOGE_DB_HOST"); env != "" {
		c.Database.Host = env
	}
	if env := os.Getenv("HORLOGE_DB_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil {
			c.Database.Port = port
		}
	}
	if env := os.Getenv("HORLOGE_DB_NAME"); env != "" {
		c.Database.Name = env
	}
	if env := os.Getenv("HORLOGE_DB_USER"); env != "" {
		c.Database.User = env
	}
	if env := os.Getenv("HORLOGE_DB_PASSWORD"); env != "" {
		c.Database.Password = env
	}
	if env := os.Getenv("HORLOGE_DB_SSLMODE"); env != "" {
		c.Database.SSLMode = env
	}

	if env := os.Getenv("HORLOGE_SCHEMA_NAME"); env != "" {
		c.Extension.SchemaName = env
	}

	if env := os.Getenv("HORLOGE_QUEUE_CAPACITY"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			c.Queue.Capacity = n
		}
	}
	if env := os.Getenv("HORLOGE_QUEUE_ENQUEUE_RETRIES"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			c.Queue.EnqueueRetries = n
		}
	}

	if env := os.Getenv("HORLOGE_EXECUTOR_WORKERS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			c.Executor.WorkerCount = n
		}
	}

	if env := os.Getenv("HORLOGE_ADMIN_API_ENABLED"); env != "" {
		c.AdminAPI.Enabled = strings.ToLower(env) == "true"
	}
	if env := os.Getenv("HORLOGE_ADMIN_API_HOST"); env != "" {
		c.AdminAPI.Host = env
	}
	if env := os.Getenv("HORLOGE_ADMIN_API_PORT"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			c.AdminAPI.Port = n
		}
	}

	if env := os.Getenv("HORLOGE_LOG_LEVEL"); env != "" {
		c.Logger.Level = strings.ToLower(env)
	}
	if env := os.Getenv("HORLOGE_LOG_FORMAT"); env != "" {
		c.Logger.Format = strings.ToLower(env)
	}
	if env := os.Getenv("HORLOGE_LOG_DIRECTORY"); env != "" {
		c.Logger.Directory = env
	}
	if env := os.Getenv("HORLOGE_LOG_ENABLE_CONSOLE"); env != "" {
		c.Logger.EnableConsole = strings.ToLower(env) == "true"
	}
}

// GetConfigPath returns the configuration file path from the
// environment, or the conventional default.
func GetConfigPath() string {
	if env := os.Getenv("HORLOGE_CONFIG_PATH"); env != "" {
		return env
	}
	return "config/horloge.yaml"
}

// LoadConfigWithEnv loads the default config file location and applies
// environment overrides, failing loudly if the file is missing.
func LoadConfigWithEnv() (*Config, error) {
	configPath := GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	return LoadConfig(configPath)
}
