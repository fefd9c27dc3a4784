package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"sheetview/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Minio   MinioConfig
	Ingest  IngestConfig
	Viewing ViewConfig
	Logging LogConfig
}

// LogConfig holds logging settings
type LogConfig struct {
	// Level is one of ERROR, WARN, INFO, DEBUG. Per-row detector diagnostics are DEBUG.
	Level string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// Store backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMinio    = "minio"
)

// StoreConfig selects and configures the record persistence backend
type StoreConfig struct {
	Backend     string
	DatabaseURL string
	Path        string
}

// MinioConfig holds object storage settings for the minio backend
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// IngestConfig holds decoding settings
type IngestConfig struct {
	HeaderSearchDepth int
	MaxUploadBytes    int64
}

// ViewConfig holds windowed rendering defaults
type ViewConfig struct {
	RowHeight int
	Overscan  int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:  *loadServerConfig(),
		Store:   *loadStoreConfig(),
		Minio:   *loadMinioConfig(),
		Ingest:  *loadIngestConfig(),
		Viewing: *loadViewConfig(),
		Logging: LogConfig{Level: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO"))},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend:     strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendFile)),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		Path:        getEnvOrDefault("STORE_PATH", "./data"),
	}
}

func loadMinioConfig() *MinioConfig {
	return &MinioConfig{
		Endpoint:  getEnvOrDefault("MINIO_ENDPOINT", ""),
		AccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnvOrDefault("MINIO_SECRET_KEY", ""),
		Bucket:    getEnvOrDefault("MINIO_BUCKET", "sheetview"),
		Prefix:    getEnvOrDefault("MINIO_PREFIX", "inventory/"),
		UseSSL:    getEnvBoolOrDefault("MINIO_USE_SSL", false),
	}
}

func loadIngestConfig() *IngestConfig {
	return &IngestConfig{
		HeaderSearchDepth: getEnvIntOrDefault("HEADER_SEARCH_DEPTH", 100),
		MaxUploadBytes:    int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
	}
}

func loadViewConfig() *ViewConfig {
	return &ViewConfig{
		RowHeight: getEnvIntOrDefault("ROW_HEIGHT", 35),
		Overscan:  getEnvIntOrDefault("OVERSCAN", 20),
	}
}

func validateConfig(config *Config) error {
	switch config.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendPostgres, BackendSQLite:
		if config.Store.DatabaseURL == "" {
			return errors.ConfigInvalid("DATABASE_URL is required for the " + config.Store.Backend + " store")
		}
	case BackendMinio:
		if config.Minio.Endpoint == "" {
			return errors.ConfigInvalid("MINIO_ENDPOINT is required for the minio store")
		}
	default:
		return errors.ConfigInvalid("unknown STORE_BACKEND: " + config.Store.Backend)
	}
	if config.Ingest.HeaderSearchDepth <= 0 {
		return errors.ConfigInvalid("HEADER_SEARCH_DEPTH must be positive")
	}
	if config.Ingest.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Viewing.RowHeight <= 0 {
		return errors.ConfigInvalid("ROW_HEIGHT must be positive")
	}
	if config.Viewing.Overscan < 0 {
		return errors.ConfigInvalid("OVERSCAN cannot be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
