package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/station-data-etl-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/station-data-etl-service/internal/adapter/kafka"
	minioadapter "github.com/couchcryptid/station-data-etl-service/internal/adapter/minio"
	"github.com/couchcryptid/station-data-etl-service/internal/adapter/retry"
	s3adapter "github.com/couchcryptid/station-data-etl-service/internal/adapter/s3"
	"github.com/couchcryptid/station-data-etl-service/internal/config"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/couchcryptid/station-data-etl-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

// bucketStore is an object store that can verify its bucket up front.
type bucketStore interface {
	domain.ObjectStore
	CheckBucket(ctx context.Context) error
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err == nil {
		err = store.CheckBucket(ctx)
	}
	if err != nil {
		logger.Error("object store unavailable", "backend", cfg.StoreBackend, "bucket", cfg.StoreBucket, "error", err)
		return 1
	}
	logger.Info("object store ready", "backend", cfg.StoreBackend, "bucket", cfg.StoreBucket)

	retrying := retry.New(store, retry.Policy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}, logger, metrics)

	// Event publishing (feature-flagged via KAFKA_ENABLED).
	var publisher pipeline.EventPublisher
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("event publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("event publishing disabled")
	}

	p := pipeline.New(retrying, clockwork.NewRealClock(), pipeline.OptionsFromConfig(cfg), publisher, logger, metrics)

	srvCtx, stopServer := context.WithCancel(ctx)
	srvDone := make(chan struct{})
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	go func() {
		defer close(srvDone)
		if err := srv.Serve(srvCtx, cfg.ShutdownTimeout); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	report, runErr := p.Run(ctx)

	stopServer()
	<-srvDone

	switch {
	case runErr == nil:
		logger.Info("run complete", report.LogAttrs()...)
		return 0
	case errors.Is(runErr, context.Canceled):
		logger.Warn("run interrupted", report.LogAttrs()...)
		return 1
	default:
		logger.Error("run finished with errors", append(report.LogAttrs(), "error", runErr)...)
		return 1
	}
}

func newStore(ctx context.Context, cfg *config.Config) (bucketStore, error) {
	if cfg.StoreBackend == config.BackendMinio {
		return minioadapter.New(minioadapter.Options{
			Endpoint: cfg.StoreEndpoint,
			Bucket:   cfg.StoreBucket,
			Region:   cfg.StoreRegion,
			UseSSL:   cfg.StoreUseSSL,
		})
	}
	return s3adapter.New(ctx, s3adapter.Options{
		Bucket:   cfg.StoreBucket,
		Region:   cfg.StoreRegion,
		Endpoint: cfg.StoreEndpoint,
	})
}
