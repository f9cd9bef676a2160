// Package config assembles the immutable runtime configuration. Values are
// read once at startup from environment variables (flags in the commands
// may override them) and validated before anything is wired.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backend names accepted by Validate.
const (
	StorageMemory     = "memory"
	StoragePostgres   = "postgres"
	StorageClickhouse = "clickhouse"
)

var (
	ErrMissingDSN       = errors.New("config: storage backend requires a DSN")
	ErrInvalidInterval  = errors.New("config: poll interval must be positive")
	ErrUnknownStorage   = errors.New("config: unknown storage backend")
	ErrUnknownGranular  = errors.New("config: granularity must be 5m or 1h")
	ErrMissingSourceURL = errors.New("config: primary source URL is required")
	ErrInvalidDetector  = errors.New("config: detector mode must be scored or threshold")
	ErrInvalidRetention = errors.New("config: retention must not be negative")
)

// Config is the full runtime configuration. It is built once and never
// mutated after Validate.
type Config struct {
	// Upstream sources.
	PrimaryURL   string
	SecondaryURL string
	UserAgent    string
	FetchTimeout time.Duration

	// Pipeline.
	Granularity  string
	DetectorMode string
	PollInterval time.Duration
	Retention    time.Duration // zero selects the granularity default in ingestion
	CacheTTL     time.Duration

	// Storage.
	Storage       string
	PostgresDSN   string
	ClickhouseDSN string

	// HTTP surfaces.
	ListenAddr  string
	MetricsAddr string
}

// FromEnv loads configuration from the environment, applying defaults for
// anything unset. A .env file in the working directory is honored when
// present.
func FromEnv() Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return Config{
		PrimaryURL:   envOr("GE_PRIMARY_URL", "https://prices.runescape.wiki/api/v1/osrs"),
		SecondaryURL: os.Getenv("GE_SECONDARY_URL"),
		UserAgent:    envOr("GE_USER_AGENT", "ge-market-watch/1.0"),
		FetchTimeout: envDurationOr("GE_FETCH_TIMEOUT", 15*time.Second),

		Granularity:  envOr("GE_GRANULARITY", "5m"),
		DetectorMode: envOr("GE_DETECTOR_MODE", "scored"),
		PollInterval: envDurationOr("GE_POLL_INTERVAL", 5*time.Minute),
		// The retention horizon differs per granularity (7 days coarse,
		// 1 day fine), so the default stays zero and the ingestion
		// manager picks the right one.
		Retention:    envDurationOr("GE_RETENTION", 0),
		CacheTTL:     envDurationOr("GE_CACHE_TTL", 300*time.Second),

		Storage:       envOr("GE_STORAGE", StorageMemory),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),

		ListenAddr:  envOr("GE_LISTEN_ADDR", ":8080"),
		MetricsAddr: envOr("GE_METRICS_ADDR", ":9090"),
	}
}

// Validate checks cross-field consistency. It returns the first problem
// found.
func (c Config) Validate() error {
	if c.PrimaryURL == "" {
		return ErrMissingSourceURL
	}
	if c.PollInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.Retention < 0 {
		return ErrInvalidRetention
	}
	switch c.Granularity {
	case "5m", "1h":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGranular, c.Granularity)
	}
	switch c.DetectorMode {
	case "scored", "threshold":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDetector, c.DetectorMode)
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres", ErrMissingDSN)
		}
	case StorageClickhouse:
		if c.ClickhouseDSN == "" {
			return fmt.Errorf("%w: clickhouse", ErrMissingDSN)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are treated as seconds.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
