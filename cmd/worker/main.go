// Package main is the entry point for the storeops background worker:
// outbox relay to Kafka, retention sweeps and the stock drift audit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	"storeops/internal/domain/registers/stock"
	"storeops/internal/infrastructure/messaging"
	"storeops/internal/infrastructure/observability"
	"storeops/internal/infrastructure/storage/postgres"
	"storeops/internal/infrastructure/storage/postgres/register_repo"
	"storeops/pkg/logger"
)

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.Setup(ctx, observability.Config{
		ServiceName:    "storeops-worker",
		ServiceVersion: cfg.Version,
		Endpoint:       cfg.OTelEndpoint,
		AuthHeader:     cfg.OTelAuthHeader,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		fmt.Printf("failed to initialize telemetry: %v\n", err)
		os.Exit(1)
	}

	var cores []zapcore.Core
	if telemetry.LogCore != nil {
		cores = append(cores, telemetry.LogCore)
	}
	log, err := logger.New(logger.Config{
		Service:     "storeops-worker",
		Version:     cfg.Version,
		Level:       cfg.LogLevel,
		Development: cfg.Env == "development",
		Cores:       cores,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	log.Infow("starting storeops worker", "kafka_topic", cfg.KafkaTopic)

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "storeops-worker"
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	txm := postgres.NewTxManager(pool)

	writer := messaging.NewWriter(messaging.WriterConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	})
	defer func() {
		if err := writer.Close(); err != nil {
			log.Warnw("kafka writer close failed", "error", err)
		}
	}()

	relayCfg := postgres.DefaultRelayConfig()
	relayCfg.BatchSize = cfg.OutboxBatchSize
	relayCfg.MaxRetries = cfg.OutboxMaxRetries
	relay := postgres.NewOutboxRelay(txm, messaging.NewOutboxHandler(writer), relayCfg)

	journal, err := postgres.NewWebhookJournal(txm)
	if err != nil {
		log.Fatalw("failed to create webhook journal", "error", err)
	}

	worker := NewWorker(
		relay,
		postgres.NewIdempotencyStore(txm, postgres.DefaultIdempotencyTTL),
		journal,
		stock.NewService(register_repo.NewStockRepo(txm), txm),
		Intervals{
			Poll:             cfg.OutboxPollInterval,
			Cleanup:          cfg.CleanupInterval,
			Drift:            cfg.DriftAuditInterval,
			WebhookRetention: cfg.WebhookRetention,
		},
		log,
	)

	if err := worker.Run(ctx); err != nil {
		log.Errorw("worker stopped with error", "error", err)
	}

	log.Info("worker stopped")
	_ = log.Sync()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("telemetry shutdown failed: %v\n", err)
	}
}
