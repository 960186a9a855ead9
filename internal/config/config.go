package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skysight/thunderhead/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Atmospheric data provider.
	ProviderBaseURL string
	ProviderTimeout time.Duration

	// Directional scan.
	ScanDistancesKm []float64
	ScanConcurrency int
	UseCloudCover   bool

	// Geo-cache.
	CacheTTL     time.Duration
	CacheGrace   time.Duration
	CacheBackend string // "memory" or "postgres"
	PostgresDSN  string

	// Precache scheduler.
	PrecacheInterval   time.Duration
	PrecacheBatchSize  int
	PrecacheBatchPause time.Duration
	PrecacheCoords     []domain.Coordinate

	// Cleanup job.
	CleanupInterval  time.Duration
	CleanupBatchSize int

	QuietHours domain.QuietHours

	// Kafka alert publishing.
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "30m")
	if err != nil {
		return nil, err
	}
	cacheGrace, err := parseDuration("CACHE_GRACE", "24h")
	if err != nil {
		return nil, err
	}
	precacheInterval, err := parseDuration("PRECACHE_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	precachePause, err := parseDuration("PRECACHE_BATCH_PAUSE", "2s")
	if err != nil {
		return nil, err
	}
	cleanupInterval, err := parseDuration("CLEANUP_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}

	distances, err := parseDistances(envOrDefault("SCAN_DISTANCES_KM", "50,150,250"))
	if err != nil {
		return nil, err
	}

	quiet, err := domain.ParseQuietHours(os.Getenv("QUIET_HOURS"))
	if err != nil {
		return nil, err
	}

	precacheCoords, err := parseCoords(os.Getenv("PRECACHE_COORDS"))
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ProviderBaseURL: envOrDefault("PROVIDER_BASE_URL", "https://api.open-meteo.com"),
		ProviderTimeout: providerTimeout,

		ScanDistancesKm: distances,
		ScanConcurrency: parsePositiveInt("SCAN_CONCURRENCY", 4),
		UseCloudCover:   os.Getenv("SCORE_CLOUD_COVER") == "true",

		CacheTTL:     cacheTTL,
		CacheGrace:   cacheGrace,
		CacheBackend: envOrDefault("CACHE_BACKEND", "memory"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),

		PrecacheInterval:   precacheInterval,
		PrecacheBatchSize:  parsePositiveInt("PRECACHE_BATCH_SIZE", 10),
		PrecacheBatchPause: precachePause,
		PrecacheCoords:     precacheCoords,

		CleanupInterval:  cleanupInterval,
		CleanupBatchSize: parsePositiveInt("CLEANUP_BATCH_SIZE", 100),

		QuietHours: quiet,

		KafkaBrokers:    brokers,
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "risk-alerts"),
		KafkaEnabled:    kafkaEnabled,
	}

	if cfg.ProviderBaseURL == "" {
		return nil, errors.New("PROVIDER_BASE_URL is required")
	}
	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "postgres" {
		return nil, fmt.Errorf("CACHE_BACKEND must be memory or postgres, got %q", cfg.CacheBackend)
	}
	if cfg.CacheBackend == "postgres" && cfg.PostgresDSN == "" {
		return nil, errors.New("CACHE_BACKEND is postgres but POSTGRES_DSN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// parseDistances parses "50,150,250" into ascending probe distances.
func parseDistances(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	prev := 0.0
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid SCAN_DISTANCES_KM entry %q", p)
		}
		if v <= prev {
			return nil, fmt.Errorf("SCAN_DISTANCES_KM must be strictly ascending, got %q", s)
		}
		out = append(out, v)
		prev = v
	}
	if len(out) == 0 {
		return nil, errors.New("SCAN_DISTANCES_KM is empty")
	}
	return out, nil
}

// parseCoords parses "35.68:139.76;40.71:-74.00" into coordinates for the
// static precache source.
func parseCoords(s string) ([]domain.Coordinate, error) {
	if s == "" {
		return nil, nil
	}
	var out []domain.Coordinate
	for _, pair := range strings.Split(s, ";") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid PRECACHE_COORDS entry %q: want lat:lon", pair)
		}
		lat, errLat := strconv.ParseFloat(parts[0], 64)
		lon, errLon := strconv.ParseFloat(parts[1], 64)
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("invalid PRECACHE_COORDS entry %q", pair)
		}
		c := domain.Coordinate{Lat: lat, Lon: lon}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid PRECACHE_COORDS entry %q: %w", pair, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
