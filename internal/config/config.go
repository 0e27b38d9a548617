package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flexlog/flexchat/internal/pkg/helpers"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
		Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	// Realtime carries the timing windows of the conversational core.
	// Values are duration strings; accessors parse with defaults.
	Realtime struct {
		TypingDebounce     string `yaml:"typing_debounce" env:"RT_TYPING_DEBOUNCE"`
		TypingExpiry       string `yaml:"typing_expiry" env:"RT_TYPING_EXPIRY"`
		TypingNameRotation string `yaml:"typing_name_rotation" env:"RT_TYPING_NAME_ROTATION"`
		PresenceHeartbeat  string `yaml:"presence_heartbeat" env:"RT_PRESENCE_HEARTBEAT"`
		PresenceIdleAfter  string `yaml:"presence_idle_after" env:"RT_PRESENCE_IDLE_AFTER"`
		PresenceOffline    string `yaml:"presence_offline_after" env:"RT_PRESENCE_OFFLINE_AFTER"`
		DeliveryRetention  string `yaml:"delivery_retention" env:"RT_DELIVERY_RETENTION"`
	} `yaml:"realtime"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		err = yaml.Unmarshal(file, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "flexchat"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.Issuer = "flexlog.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Realtime.TypingDebounce = "1s"
	config.Realtime.TypingExpiry = "5s"
	config.Realtime.TypingNameRotation = "3s"
	config.Realtime.PresenceHeartbeat = "30s"
	config.Realtime.PresenceIdleAfter = "5m"
	config.Realtime.PresenceOffline = "10m"
	config.Realtime.DeliveryRetention = "10m"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	for name, value := range map[string]string{
		"typing_debounce":        config.Realtime.TypingDebounce,
		"typing_expiry":          config.Realtime.TypingExpiry,
		"typing_name_rotation":   config.Realtime.TypingNameRotation,
		"presence_heartbeat":     config.Realtime.PresenceHeartbeat,
		"presence_idle_after":    config.Realtime.PresenceIdleAfter,
		"presence_offline_after": config.Realtime.PresenceOffline,
		"delivery_retention":     config.Realtime.DeliveryRetention,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid realtime.%s: %w", name, err)
		}
	}

	return nil
}

// GetPostgresConnectionString returns the postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// TypingDebounce returns the quiet window before a typing write happens.
func (c *Config) TypingDebounce() time.Duration {
	return helpers.ParseDuration(c.Realtime.TypingDebounce, time.Second)
}

// TypingExpiry returns the self-expiring lease on a typing status.
func (c *Config) TypingExpiry() time.Duration {
	return helpers.ParseDuration(c.Realtime.TypingExpiry, 5*time.Second)
}

// TypingNameRotation returns the display-layer rotation interval.
func (c *Config) TypingNameRotation() time.Duration {
	return helpers.ParseDuration(c.Realtime.TypingNameRotation, 3*time.Second)
}

// PresenceHeartbeat returns the recurring status recompute interval.
func (c *Config) PresenceHeartbeat() time.Duration {
	return helpers.ParseDuration(c.Realtime.PresenceHeartbeat, 30*time.Second)
}

// PresenceIdleAfter returns the online/idle boundary.
func (c *Config) PresenceIdleAfter() time.Duration {
	return helpers.ParseDuration(c.Realtime.PresenceIdleAfter, 5*time.Minute)
}

// PresenceOfflineAfter returns the idle/offline boundary.
func (c *Config) PresenceOfflineAfter() time.Duration {
	return helpers.ParseDuration(c.Realtime.PresenceOffline, 10*time.Minute)
}

// DeliveryRetention returns how long a settled delivery entry is kept for
// dedup and reply retargeting before eviction.
func (c *Config) DeliveryRetention() time.Duration {
	return helpers.ParseDuration(c.Realtime.DeliveryRetention, 10*time.Minute)
}
