// Package config loads the collector configuration from the environment.
// A .env file in the working directory is honored when present; explicit
// environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full collector configuration, read once at startup.
type Config struct {
	Collector CollectorConfig
	API       APIConfig
	Redis     RedisConfig
	Log       LogConfig

	// MetricsAddr is the listen address for the Prometheus /metrics endpoint
	// during the run. Empty disables the listener.
	MetricsAddr string
}

// CollectorConfig controls the collection run itself.
type CollectorConfig struct {
	// DeviceCount is the size of the device population.
	DeviceCount int

	// SerialPrefix prefixes every generated serial.
	SerialPrefix string

	// BatchSize is the maximum number of serials per request.
	BatchSize int

	// AdmissionInterval is the minimum gap between two batch admissions.
	AdmissionInterval time.Duration

	// MaxRetries is the retry ceiling per batch.
	MaxRetries int

	// RetryDelay is the fixed delay between attempts of one batch.
	RetryDelay time.Duration

	// OutputPath is where the run report is written.
	OutputPath string
}

// APIConfig holds the telemetry API connection parameters.
type APIConfig struct {
	BaseURL  string
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// RedisConfig controls the optional report mirror.
// An empty Addr disables mirroring.
type RedisConfig struct {
	Addr      string
	ReportTTL time.Duration
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	deviceCount, err := getEnvInt("DEVICE_COUNT", 500)
	if err != nil {
		return nil, err
	}
	batchSize, err := getEnvInt("BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	intervalMs, err := getEnvInt("ADMISSION_INTERVAL_MS", 1000)
	if err != nil {
		return nil, err
	}
	maxRetries, err := getEnvInt("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	retryDelayMs, err := getEnvInt("RETRY_DELAY_MS", 5000)
	if err != nil {
		return nil, err
	}
	apiTimeoutMs, err := getEnvInt("API_TIMEOUT_MS", 5000)
	if err != nil {
		return nil, err
	}
	reportTTLSec, err := getEnvInt("REDIS_REPORT_TTL_SECONDS", 86400)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Collector: CollectorConfig{
			DeviceCount:       deviceCount,
			SerialPrefix:      getEnv("SERIAL_PREFIX", "SN-"),
			BatchSize:         batchSize,
			AdmissionInterval: time.Duration(intervalMs) * time.Millisecond,
			MaxRetries:        maxRetries,
			RetryDelay:        time.Duration(retryDelayMs) * time.Millisecond,
			OutputPath:        getEnv("OUTPUT_PATH", "out/report.json"),
		},
		API: APIConfig{
			BaseURL:  os.Getenv("API_BASE_URL"),
			Endpoint: getEnv("API_ENDPOINT", "/v1/telemetry/batch"),
			Token:    os.Getenv("API_TOKEN"),
			Timeout:  time.Duration(apiTimeoutMs) * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_URL"),
			ReportTTL: time.Duration(reportTTLSec) * time.Second,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnv("LOG_PRETTY", "false") == "true",
		},
		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces the scalar constraints of the configuration surface.
func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.API.Token == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	if c.Collector.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive (got %d)", c.Collector.BatchSize)
	}
	if c.Collector.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0 (got %d)", c.Collector.MaxRetries)
	}
	if c.Collector.DeviceCount < 0 {
		return fmt.Errorf("DEVICE_COUNT must be >= 0 (got %d)", c.Collector.DeviceCount)
	}
	if c.Collector.AdmissionInterval <= 0 {
		return fmt.Errorf("ADMISSION_INTERVAL_MS must be positive (got %v)", c.Collector.AdmissionInterval)
	}
	return nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable parsed as int or a default.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
