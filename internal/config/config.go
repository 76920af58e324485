package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Store backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

const maxBatchSize = 100000

// Config holds all service settings, populated from environment variables.
type Config struct {
	StoreBackend  string
	StoreBucket   string
	StoreRegion   string
	StoreEndpoint string
	StoreUseSSL   bool

	PartitionPrefix  string
	BatchSize        int
	MaxFiles         int
	StalenessMinutes int
	NewerThan        bool
	ForceAllYears    bool
	Workers          int

	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// Event publishing configuration.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Staleness returns the last-modified threshold as a duration.
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.StalenessMinutes) * time.Minute
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := parseInt("BATCH_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	if batchSize < 1 || batchSize > maxBatchSize {
		return nil, fmt.Errorf("BATCH_SIZE must be between 1 and %d", maxBatchSize)
	}

	maxFiles, err := parseInt("MAX_FILES", 50000)
	if err != nil {
		return nil, err
	}
	if maxFiles < 1 {
		return nil, errors.New("MAX_FILES must be positive")
	}

	staleness, err := parseInt("STALENESS_MINUTES", 1)
	if err != nil {
		return nil, err
	}
	if staleness < 0 {
		return nil, errors.New("STALENESS_MINUTES must not be negative")
	}

	newerThan, err := parseBool("STALENESS_NEWER_THAN", true)
	if err != nil {
		return nil, err
	}

	forceAll, err := parseBool("FORCE_ALL_YEARS", false)
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("WORKERS", 16)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		return nil, errors.New("WORKERS must be positive")
	}

	attempts, err := parseInt("RETRY_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, errors.New("RETRY_MAX_ATTEMPTS must be positive")
	}

	initial, err := parseDuration("RETRY_INITIAL_INTERVAL", "200ms")
	if err != nil {
		return nil, err
	}
	maxInterval, err := parseDuration("RETRY_MAX_INTERVAL", "5s")
	if err != nil {
		return nil, err
	}
	if maxInterval < initial {
		return nil, errors.New("RETRY_MAX_INTERVAL must not be less than RETRY_INITIAL_INTERVAL")
	}

	useSSL, err := parseBool("STORE_USE_SSL", true)
	if err != nil {
		return nil, err
	}

	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StoreBackend:  sharedcfg.EnvOrDefault("STORE_BACKEND", BackendS3),
		StoreBucket:   sharedcfg.EnvOrDefault("STORE_BUCKET", "noaa-temperature-data"),
		StoreRegion:   sharedcfg.EnvOrDefault("STORE_REGION", "us-east-1"),
		StoreEndpoint: os.Getenv("STORE_ENDPOINT"),
		StoreUseSSL:   useSSL,

		PartitionPrefix:  os.Getenv("PARTITION_PREFIX"),
		BatchSize:        batchSize,
		MaxFiles:         maxFiles,
		StalenessMinutes: staleness,
		NewerThan:        newerThan,
		ForceAllYears:    forceAll,
		Workers:          workers,

		RetryMaxAttempts:     attempts,
		RetryInitialInterval: initial,
		RetryMaxInterval:     maxInterval,

		KafkaBrokers: nonEmpty(sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092"))),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "station-data-events"),
		KafkaEnabled: kafkaEnabled,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.StoreBackend != BackendS3 && cfg.StoreBackend != BackendMinio {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendS3, BackendMinio)
	}
	if cfg.StoreBucket == "" {
		return nil, errors.New("STORE_BUCKET is required")
	}
	if cfg.StoreBackend == BackendMinio && cfg.StoreEndpoint == "" {
		return nil, errors.New("STORE_ENDPOINT is required for the minio backend")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func nonEmpty(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
