package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/adilg123/lzhuff/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxFileSize      = 50 * 1024 * 1024 // 50MB
	defaultCompareCacheSize = 32
)

// Config holds the application configuration
type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	MaxFileSize int64  `yaml:"maxFileSize"` // in bytes
	LogLevel    string `yaml:"logLevel"`

	// CompareCacheSize is how many comparison results the API keeps; 0
	// disables the cache.
	CompareCacheSize int `yaml:"compareCacheSize"`
}

// Load loads configuration from environment variables with defaults. When
// path is empty CONFIG_FILE is consulted; a named file overrides the
// environment field by field.
func Load(path string) (*Config, error) {
	maxFileSize, err := strconv.ParseInt(getEnv("MAX_FILE_SIZE", strconv.Itoa(defaultMaxFileSize)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: MAX_FILE_SIZE: %w", err)
	}

	compareCacheSize, err := strconv.Atoi(getEnv("COMPARE_CACHE_SIZE", strconv.Itoa(defaultCompareCacheSize)))
	if err != nil {
		return nil, fmt.Errorf("config: COMPARE_CACHE_SIZE: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("GO_ENV", "development"),
		MaxFileSize: maxFileSize,
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CompareCacheSize: compareCacheSize,
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	// Decoding into the populated struct keeps fields the file leaves out.
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Validate reports the first field that cannot be used.
func (cfg *Config) Validate() error {
	if cfg.Port == "" {
		return errors.New("config: port must not be empty")
	}
	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("config: maxFileSize must be positive, got %d", cfg.MaxFileSize)
	}
	if cfg.CompareCacheSize < 0 {
		return fmt.Errorf("config: compareCacheSize must not be negative, got %d", cfg.CompareCacheSize)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
