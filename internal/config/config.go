package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	PublicURL       string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Remote services polled by the dashboard.
	AIServiceURL         string
	BlockchainServiceURL string
	UpstreamTimeout      time.Duration

	SweepInterval   time.Duration
	EventTTL        time.Duration
	LogCapacity     int
	RetrainDuration time.Duration
	RandomSeed      uint64

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaEventsTopic string

	// Redis settings store; disabled when RedisAddr is empty.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisSettingsKey string

	// Postgres event archive; disabled when DatabaseURL is empty.
	DatabaseURL string

	// Mapbox reverse geocoding for coordinates outside the monitored cities.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	upstreamTimeout, err := parsePositiveDuration("UPSTREAM_TIMEOUT", "4s")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parsePositiveDuration("SWEEP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	eventTTL, err := parsePositiveDuration("EVENT_TTL", "24h")
	if err != nil {
		return nil, err
	}
	retrainDuration, err := parsePositiveDuration("RETRAIN_DURATION", "5s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxCacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("MAPBOX_CACHE_SIZE", "1000"))
	if err != nil || mapboxCacheSize <= 0 {
		return nil, errors.New("invalid MAPBOX_CACHE_SIZE")
	}
	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	logCapacity, err := strconv.Atoi(sharedcfg.EnvOrDefault("LOG_CAPACITY", "1000"))
	if err != nil || logCapacity <= 0 {
		return nil, errors.New("invalid LOG_CAPACITY")
	}

	seed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("RANDOM_SEED", "0"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid RANDOM_SEED")
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	httpAddr := sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080")
	cfg := &Config{
		HTTPAddr:        httpAddr,
		PublicURL:       sharedcfg.EnvOrDefault("PUBLIC_URL", "http://localhost"+httpAddr),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		AIServiceURL:         sharedcfg.EnvOrDefault("AI_SERVICE_URL", "http://localhost:3006"),
		BlockchainServiceURL: sharedcfg.EnvOrDefault("BLOCKCHAIN_SERVICE_URL", "http://localhost:3007"),
		UpstreamTimeout:      upstreamTimeout,

		SweepInterval:   sweepInterval,
		EventTTL:        eventTTL,
		LogCapacity:     logCapacity,
		RetrainDuration: retrainDuration,
		RandomSeed:      seed,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "weathernft-events"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          redisDB,
		RedisSettingsKey: sharedcfg.EnvOrDefault("REDIS_SETTINGS_KEY", "weathernft:settings"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: mapboxCacheSize,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaEventsTopic == "" {
			return nil, errors.New("KAFKA_EVENTS_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
