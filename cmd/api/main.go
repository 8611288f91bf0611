package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/fraudscope/transaction-scoring-backend/internal/api/rest"
	"github.com/fraudscope/transaction-scoring-backend/internal/domain/transaction"
	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/cache"
	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/config"
	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/model"
	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/state"
	"github.com/fraudscope/transaction-scoring-backend/internal/infrastructure/telemetry"
	"github.com/fraudscope/transaction-scoring-backend/internal/metrics"
	"github.com/fraudscope/transaction-scoring-backend/internal/service/scoring"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)

	ctx := context.Background()
	provider, err := telemetry.Initialize(ctx, &telemetry.Config{
		ServiceName:    "fds-api",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown telemetry", "error", err)
		}
	}()

	// The classifier is a startup precondition: a scoring service
	// without a model serves nothing.
	classifier, err := model.Load(cfg.Model.Path)
	if err != nil {
		logger.Error("failed to load model artifact",
			"path", cfg.Model.Path,
			"error", err,
		)
		os.Exit(1)
	}
	logger.Info("model artifact loaded",
		"path", cfg.Model.Path,
		"version", classifier.Version(),
	)

	store := state.NewStore(cfg.Scoring.StateShards)

	registry, err := metrics.NewRegistry("fds.scoring", func() int64 {
		return int64(store.Len())
	})
	if err != nil {
		logger.Error("failed to create metrics registry", "error", err)
		os.Exit(1)
	}

	hub := rest.NewStreamHub(logger)

	svc, err := scoring.NewService(
		store,
		classifier,
		scoring.Config{
			BlockThreshold:  cfg.Scoring.BlockThreshold,
			ReviewThreshold: cfg.Scoring.ReviewThreshold,
			ScoreTimeout:    cfg.Model.ScoreTimeout,
		},
		logger,
		registry,
		&instrumentedPublisher{hub: hub},
	)
	if err != nil {
		logger.Error("failed to create scoring service", "error", err)
		os.Exit(1)
	}

	var limiter cache.RateLimiter
	if cfg.Redis.Address != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("failed to connect to redis", "address", cfg.Redis.Address, "error", err)
			os.Exit(1)
		}
		defer client.Close()

		zapLogger, err := zap.NewProduction()
		if err != nil {
			logger.Error("failed to create zap logger", "error", err)
			os.Exit(1)
		}
		defer zapLogger.Sync()

		limiter = cache.NewRedisRateLimiter(client, zapLogger)
		logger.Info("using redis rate limiter", "address", cfg.Redis.Address)
	} else {
		limiter = cache.NewLocalRateLimiter(cfg.RateLimit.Burst)
		logger.Info("using in-process rate limiter")
	}

	server, err := rest.NewServer(cfg, rest.Deps{
		Scoring:        svc,
		Logger:         logger,
		RateLimiter:    limiter,
		MetricsHandler: MetricsHandler(),
		HTTPMetrics:    HTTPMetricsMiddleware(),
		Hub:            hub,
		ModelVersion:   classifier.Version(),
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := server.Start(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// instrumentedPublisher counts verdicts and tracks stream fan-out
// alongside the hub delivery.
type instrumentedPublisher struct {
	hub *rest.StreamHub
}

func (p *instrumentedPublisher) Publish(result *transaction.ScoreResult) {
	RecordVerdict(string(result.Verdict))
	p.hub.Publish(result)
	UpdateStreamClients(float64(p.hub.ClientCount()))
}
