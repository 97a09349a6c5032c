package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weathernft-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weathernft-service/internal/adapter/kafka"
	"github.com/couchcryptid/weathernft-service/internal/adapter/mapbox"
	"github.com/couchcryptid/weathernft-service/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/weathernft-service/internal/adapter/redis"
	"github.com/couchcryptid/weathernft-service/internal/adapter/upstream"
	"github.com/couchcryptid/weathernft-service/internal/adminlog"
	"github.com/couchcryptid/weathernft-service/internal/aggregation"
	"github.com/couchcryptid/weathernft-service/internal/config"
	"github.com/couchcryptid/weathernft-service/internal/engine"
	"github.com/couchcryptid/weathernft-service/internal/factory"
	"github.com/couchcryptid/weathernft-service/internal/generator"
	"github.com/couchcryptid/weathernft-service/internal/ledger"
	"github.com/couchcryptid/weathernft-service/internal/nft"
	"github.com/couchcryptid/weathernft-service/internal/observability"
	"github.com/couchcryptid/weathernft-service/internal/settings"
	"github.com/couchcryptid/weathernft-service/internal/users"
	"github.com/jonboulle/clockwork"
)

// readinessChecker is satisfied by the engine and each enabled store.
type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// readiness fails when any of its checkers does.
type readiness []readinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	startedAt := clock.Now()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rng := generator.NewRand(cfg.RandomSeed)
	ledgerStore := ledger.New(clock)
	settingsStore := settings.NewStore(settings.Default())
	userStore := users.NewStore(clock, users.Seed())
	logs := adminlog.New(cfg.LogCapacity, clock)
	gen := generator.New(rng, clock, nil)
	ready := readiness{}

	deps := engine.Deps{
		Generator: gen,
		Factory:   factory.New(rng, clock, cfg.EventTTL),
		Ledger:    ledgerStore,
		Settings:  settingsStore,
		Users:     userStore,
		Logs:      logs,
		NFT:       nft.NewRegistry(rng, clock),
		Rand:      rng,
		Clock:     clock,
		Logger:    logger,
		Metrics:   metrics,
	}

	// Optional sinks. Each is feature-flagged by its configuration.
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		if err := kafkaadapter.CreateTopic(cfg.KafkaBrokers, cfg.KafkaEventsTopic, 3, 1); err != nil {
			logger.Warn("kafka topic setup failed", "topic", cfg.KafkaEventsTopic, "error", err)
		}
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		deps.Publisher = publisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaEventsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	if cfg.RedisAddr != "" {
		client := redisadapter.NewClient(cfg)
		defer client.Close()
		repo := redisadapter.NewSettingsRepository(client, cfg.RedisSettingsKey)
		deps.SettingsRepo = repo
		ready = append(ready, repo)
		logger.Info("redis settings store enabled", "addr", cfg.RedisAddr, "key", cfg.RedisSettingsKey)
	} else {
		logger.Info("redis settings store disabled")
	}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		archive := postgres.NewArchive(db)
		if err := archive.Migrate(ctx); err != nil {
			logger.Error("failed to migrate postgres", "error", err)
			os.Exit(1)
		}
		deps.Archive = archive
		ready = append(ready, archive)
		logger.Info("postgres event archive enabled")
	} else {
		logger.Info("postgres event archive disabled")
	}

	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		deps.Geocoder = geocoder
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	aiClient := upstream.NewAIClient(cfg.AIServiceURL, cfg.UpstreamTimeout, logger)
	deps.Dashboard = aggregation.New(aggregation.Deps{
		AI:         aiClient,
		Algorithms: aiClient,
		Events:     aiClient,
		Chain:      upstream.NewChainClient(cfg.BlockchainServiceURL, cfg.UpstreamTimeout, logger),
		Users:      userStore,
		Ledger:     ledgerStore,
		Logs:       logs,
		Settings:   settingsStore,
	}, aggregation.Options{
		Timeout:      cfg.UpstreamTimeout,
		AIServiceURL: cfg.AIServiceURL,
		ChainURL:     cfg.BlockchainServiceURL,
		SelfURL:      cfg.PublicURL,
		Clock:        clock,
		StartedAt:    startedAt,
	}, logger, metrics)

	eng := engine.New(deps, engine.Options{
		SweepInterval:   cfg.SweepInterval,
		RetrainDuration: cfg.RetrainDuration,
		GeocodeTimeout:  cfg.MapboxTimeout,
	})
	if err := eng.LoadSettings(ctx); err != nil {
		logger.Warn("using default settings", "error", err)
	}
	ready = append(readiness{eng}, ready...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, ready, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start expiry sweep.
	go func() {
		if err := eng.Run(ctx); err != nil {
			logger.Error("expiry sweep error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	eng.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
