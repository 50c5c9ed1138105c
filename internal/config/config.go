// Package config provides configuration loading and management for the application.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Per contract call timeout
	CallTimeout time.Duration

	// HTTP transport retries for RPC requests, 0 disables them
	RPCRetryMax int

	// Directory overriding the embedded ABI descriptors
	ABIDir string

	// Origins allowed by CORS
	CORSAllowedOrigins []string

	// Whether to expose Prometheus metrics
	EnableMetrics bool

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Graceful shutdown budget
	ShutdownTimeout time.Duration
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		Port:               GetEnvOrDefault("PORT", "8080"),
		CallTimeout:        GetEnvAsDuration("RPC_CALL_TIMEOUT", 10*time.Second),
		RPCRetryMax:        GetEnvAsInt("RPC_RETRY_MAX", 0),
		ABIDir:             GetEnvOrDefault("ABI_DIR", ""),
		CORSAllowedOrigins: GetEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		EnableMetrics:      GetEnvAsBool("ENABLE_METRICS", true),
		OtelEndpoint:       GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ShutdownTimeout:    GetEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// LoadDotEnv loads variables from a dotenv file without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("No dotenv file at %s", path)
			return nil
		}
		return err
	}
	logrus.Infof("Loaded environment from %s", path)
	return nil
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s: %q, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.Warnf("Invalid boolean in %s: %q, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
		logrus.Warnf("Invalid duration in %s: %q, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// GetEnvAsList splits a comma-separated variable, dropping empty items
func GetEnvAsList(key string, defaultValue []string) []string {
	value, exists := GetEnv(key)
	if !exists {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
