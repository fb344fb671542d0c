// Package config loads territoryd settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the territoryd server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// RegistryPath points at a place registry written by WritePlaces. Empty
	// means the bundled registry.
	RegistryPath string
	// DefaultRegion names a registry place used when nothing resolves. Empty
	// keeps the built-in default.
	DefaultRegion string

	LogLevel  string
	LogFormat string

	MetricsEnabled bool
}

// Load reads the given env files, or ./.env when none are named, and builds
// the config. Variables already set in the process win over file values.
// A missing ./.env is not an error; a missing named file is.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", strings.Join(files, ","), err)
	}

	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig builds the config from the environment alone.
func LoadConfig() *Config {
	return &Config{
		Addr:            getEnv("TERRITORY_ADDR", ":8080"),
		ReadTimeout:     getEnvAsDuration("TERRITORY_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getEnvAsDuration("TERRITORY_WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvAsDuration("TERRITORY_SHUTDOWN_TIMEOUT", 5*time.Second),

		RegistryPath:  getEnv("TERRITORY_REGISTRY_PATH", ""),
		DefaultRegion: getEnv("TERRITORY_DEFAULT_REGION", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		MetricsEnabled: getEnvAsBool("TERRITORY_METRICS", true),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: TERRITORY_ADDR must not be empty")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("config: TERRITORY_SHUTDOWN_TIMEOUT must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT %q is not text or json", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}
