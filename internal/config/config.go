package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	InputPath  string
	OutputPath string
	CachePath  string

	LogLevel        string
	LogFormat       string
	MetricsAddr     string // empty disables the metrics server
	ShutdownTimeout time.Duration

	// Pacing and transport.
	RequestTimeout time.Duration
	PacingDelay    time.Duration

	// Primary provider (Open-Meteo geocoding).
	PrimaryBaseURL     string
	PrimaryResultCount int

	// Secondary provider (Nominatim), used only after the primary is exhausted.
	SecondaryEnabled   bool
	SecondaryBaseURL   string
	SecondaryLimit     int
	SecondaryUserAgent string

	// Optional Kafka sink for output records.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether output records should also be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parsePositiveDuration("REQUEST_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	pacingDelay, err := time.ParseDuration(sharedcfg.EnvOrDefault("PACING_DELAY", "1s"))
	if err != nil || pacingDelay < 0 {
		return nil, errors.New("invalid PACING_DELAY")
	}

	primaryCount, err := parseIntInRange("PRIMARY_RESULT_COUNT", 10, 1, 100)
	if err != nil {
		return nil, err
	}

	secondaryLimit, err := parseIntInRange("SECONDARY_LIMIT", 5, 1, 50)
	if err != nil {
		return nil, err
	}

	secondaryEnabled := false
	if v := os.Getenv("SECONDARY_ENABLED"); v != "" {
		secondaryEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid SECONDARY_ENABLED")
		}
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		InputPath:       sharedcfg.EnvOrDefault("INPUT_PATH", "chapters.csv"),
		OutputPath:      sharedcfg.EnvOrDefault("OUTPUT_PATH", "chapters.json"),
		CachePath:       sharedcfg.EnvOrDefault("CACHE_PATH", "geocode_cache.json"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		ShutdownTimeout: shutdownTimeout,

		RequestTimeout: requestTimeout,
		PacingDelay:    pacingDelay,

		PrimaryBaseURL:     sharedcfg.EnvOrDefault("PRIMARY_BASE_URL", "https://geocoding-api.open-meteo.com/v1/search"),
		PrimaryResultCount: primaryCount,

		SecondaryEnabled:   secondaryEnabled,
		SecondaryBaseURL:   sharedcfg.EnvOrDefault("SECONDARY_BASE_URL", "https://nominatim.openstreetmap.org/search"),
		SecondaryLimit:     secondaryLimit,
		SecondaryUserAgent: sharedcfg.EnvOrDefault("SECONDARY_USER_AGENT", "chapter-geocoder/1.0"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "geocoded-chapters"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that flag overrides can also break.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("INPUT_PATH is required")
	}
	if c.OutputPath == "" {
		return errors.New("OUTPUT_PATH is required")
	}
	if c.CachePath == "" {
		return errors.New("CACHE_PATH is required")
	}
	if c.SecondaryEnabled && strings.TrimSpace(c.SecondaryUserAgent) == "" {
		return errors.New("SECONDARY_ENABLED is true but SECONDARY_USER_AGENT is empty")
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseIntInRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
