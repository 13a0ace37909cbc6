// Package config loads configuration for the contractmeta CLI.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backend selection for documents and the metadata artifact.
const (
	StorageMinio = "minio"
	StorageLocal = "local"
)

// Config holds all configuration values. Components receive the values they
// need explicitly; nothing reads the environment after Load.
type Config struct {
	// Document analysis service
	DocintelEndpoint   string
	DocintelAPIKey     string
	DocintelModelID    string
	DocintelAPIVersion string

	// Batch behaviour
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxInFlight     int

	// Storage
	StorageBackend string
	DataDir        string
	ArtifactName   string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		DocintelEndpoint:   getEnv("DOCINTEL_ENDPOINT", ""),
		DocintelAPIKey:     getEnv("DOCINTEL_API_KEY", ""),
		DocintelModelID:    getEnv("DOCINTEL_MODEL_ID", "tatra_ner_v2"),
		DocintelAPIVersion: getEnv("DOCINTEL_API_VERSION", "2024-07-31-preview"),

		PollInterval:    getDuration("CONTRACTMETA_POLL_INTERVAL", 5*time.Second),
		MaxPollAttempts: getInt("CONTRACTMETA_MAX_POLL_ATTEMPTS", 12),
		MaxInFlight:     getInt("CONTRACTMETA_MAX_IN_FLIGHT", 4),

		StorageBackend: getEnv("CONTRACTMETA_STORAGE", StorageLocal),
		DataDir:        getEnv("CONTRACTMETA_DATA_DIR", "./data"),
		ArtifactName:   getEnv("CONTRACTMETA_ARTIFACT", "documents_metadata.txt"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "contracts"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		LogFile:  getEnv("CONTRACTMETA_LOG_FILE", "/tmp/contractmeta.log"),
		LogLevel: parseLogLevel(getEnv("CONTRACTMETA_LOG_LEVEL", "INFO")),
	}
}

// fileConfig mirrors Config for the optional YAML overlay; only fields set
// in the file override the environment.
type fileConfig struct {
	DocintelEndpoint   *string `yaml:"docintel_endpoint"`
	DocintelAPIKey     *string `yaml:"docintel_api_key"`
	DocintelModelID    *string `yaml:"docintel_model_id"`
	DocintelAPIVersion *string `yaml:"docintel_api_version"`

	PollInterval    *string `yaml:"poll_interval"`
	MaxPollAttempts *int    `yaml:"max_poll_attempts"`
	MaxInFlight     *int    `yaml:"max_in_flight"`

	StorageBackend *string `yaml:"storage"`
	DataDir        *string `yaml:"data_dir"`
	ArtifactName   *string `yaml:"artifact"`

	MinioEndpoint  *string `yaml:"minio_endpoint"`
	MinioAccessKey *string `yaml:"minio_access_key"`
	MinioSecretKey *string `yaml:"minio_secret_key"`
	MinioBucket    *string `yaml:"minio_bucket"`
	MinioUseSSL    *bool   `yaml:"minio_use_ssl"`

	LogFile  *string `yaml:"log_file"`
	LogLevel *string `yaml:"log_level"`
}

// ApplyFile overlays values from a YAML config file onto c.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.DocintelEndpoint, fc.DocintelEndpoint)
	setString(&c.DocintelAPIKey, fc.DocintelAPIKey)
	setString(&c.DocintelModelID, fc.DocintelModelID)
	setString(&c.DocintelAPIVersion, fc.DocintelAPIVersion)
	setString(&c.StorageBackend, fc.StorageBackend)
	setString(&c.DataDir, fc.DataDir)
	setString(&c.ArtifactName, fc.ArtifactName)
	setString(&c.MinioEndpoint, fc.MinioEndpoint)
	setString(&c.MinioAccessKey, fc.MinioAccessKey)
	setString(&c.MinioSecretKey, fc.MinioSecretKey)
	setString(&c.MinioBucket, fc.MinioBucket)
	setString(&c.LogFile, fc.LogFile)

	if fc.PollInterval != nil {
		d, err := time.ParseDuration(*fc.PollInterval)
		if err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	if fc.MaxPollAttempts != nil {
		c.MaxPollAttempts = *fc.MaxPollAttempts
	}
	if fc.MaxInFlight != nil {
		c.MaxInFlight = *fc.MaxInFlight
	}
	if fc.MinioUseSSL != nil {
		c.MinioUseSSL = *fc.MinioUseSSL
	}
	if fc.LogLevel != nil {
		c.LogLevel = parseLogLevel(*fc.LogLevel)
	}
	return nil
}

// Validate checks the settings required to run an extraction batch.
func (c Config) Validate() error {
	if c.DocintelEndpoint == "" {
		return fmt.Errorf("DOCINTEL_ENDPOINT must be set")
	}
	if c.DocintelAPIKey == "" {
		return fmt.Errorf("DOCINTEL_API_KEY must be set")
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageMinio:
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be set for minio storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
