package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/skysight/thunderhead/internal/adapter/http"
	kafkaadapter "github.com/skysight/thunderhead/internal/adapter/kafka"
	"github.com/skysight/thunderhead/internal/adapter/openmeteo"
	"github.com/skysight/thunderhead/internal/config"
	"github.com/skysight/thunderhead/internal/domain"
	"github.com/skysight/thunderhead/internal/geocache"
	"github.com/skysight/thunderhead/internal/observability"
	"github.com/skysight/thunderhead/internal/scan"
	"github.com/skysight/thunderhead/internal/schedule"
)

func main() {
	// A missing .env is fine; env vars may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize cache store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	scorerCfg := domain.DefaultScorerConfig()
	scorerCfg.UseCloudCover = cfg.UseCloudCover
	scorer, err := domain.NewScorer(scorerCfg)
	if err != nil {
		logger.Error("invalid scorer configuration", "error", err)
		os.Exit(1)
	}

	provider := openmeteo.NewClient(cfg.ProviderBaseURL, cfg.ProviderTimeout, metrics, logger)
	scanner := scan.New(provider, scorer, cfg.ScanDistancesKm, cfg.ScanConcurrency, metrics, logger)
	cache := geocache.New(store, scanner, cfg.CacheTTL, clk, metrics, logger)

	// Alert publishing (feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED).
	if cfg.KafkaEnabled {
		publisher := kafkaadapter.NewAlertPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic, metrics, logger)
		entries, unsubscribe := cache.Subscribe(64)
		defer unsubscribe()
		defer publisher.Close()
		go publisher.Run(ctx, entries)
		logger.Info("alert publishing enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("alert publishing disabled")
	}

	precacher := schedule.NewPrecacher(
		schedule.NewStaticSource(cfg.PrecacheCoords),
		cache,
		cfg.PrecacheInterval,
		cfg.PrecacheBatchSize,
		cfg.PrecacheBatchPause,
		cfg.QuietHours,
		clk, metrics, logger,
	)
	cleanup := schedule.NewCleanup(store, cfg.CleanupInterval, cfg.CacheGrace, cfg.CleanupBatchSize, clk, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, cache, scanner, store, cfg.QuietHours, clk, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		if err := precacher.Run(ctx); err != nil {
			logger.Error("precacher error", "error", err)
		}
	}()
	go func() {
		if err := cleanup.Run(ctx); err != nil {
			logger.Error("cleanup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newStore selects the cache backend. The returned closer is a no-op for the
// in-memory store.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (geocache.Store, func(), error) {
	if cfg.CacheBackend == "postgres" {
		pg, err := geocache.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres cache store")
		return pg, pg.Close, nil
	}
	logger.Info("using in-memory cache store")
	return geocache.NewMemoryStore(), func() {}, nil
}
