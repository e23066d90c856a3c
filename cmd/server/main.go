// Package main is the entry point for the storeops API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	corenumerator "storeops/internal/core/numerator"
	"storeops/internal/domain/auth"
	"storeops/internal/domain/order"
	"storeops/internal/domain/payment"
	"storeops/internal/domain/promotion"
	"storeops/internal/domain/registers/stock"
	"storeops/internal/domain/returns"
	"storeops/internal/domain/settings"
	"storeops/internal/domain/shipping"
	"storeops/internal/infrastructure/cache"
	v1 "storeops/internal/infrastructure/http/v1"
	"storeops/internal/infrastructure/numerator"
	"storeops/internal/infrastructure/observability"
	"storeops/internal/infrastructure/storage/postgres"
	"storeops/internal/infrastructure/storage/postgres/catalog_repo"
	"storeops/internal/infrastructure/storage/postgres/document_repo"
	"storeops/internal/infrastructure/storage/postgres/register_repo"
	"storeops/pkg/logger"
)

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	telemetry, err := observability.Setup(ctx, observability.Config{
		ServiceName:    "storeops-server",
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
		Service:     "storeops-server",
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

	log.Infow("starting storeops server", "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "storeops-server"
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	txm := postgres.NewTxManager(pool)

	// --- Repositories ---
	products := catalog_repo.NewProductRepo(txm)
	customers := catalog_repo.NewCustomerRepo(txm)
	carts := catalog_repo.NewCartRepo(txm)
	promotions := catalog_repo.NewPromotionRepo(txm)
	orders := document_repo.NewOrderRepo(txm)
	returnRepo := document_repo.NewReturnRepo(txm)
	shipments := document_repo.NewShipmentRepo(txm)
	ledger := register_repo.NewStockRepo(txm)

	journal, err := postgres.NewWebhookJournal(txm)
	if err != nil {
		log.Fatalw("failed to create webhook journal", "error", err)
	}
	outbox := postgres.NewOutboxPublisher(txm)
	numbers := numerator.New(func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) })
	numberStrategy, err := corenumerator.ParseStrategy(cfg.NumeratorStrategy)
	if err != nil {
		log.Fatalw("invalid NUMERATOR_STRATEGY", "error", err)
	}

	// --- Settings ---
	settingsStore := postgres.NewSettingsStore(txm)
	settingsCache := cache.NewSettingsCache(settingsStore, pool.Pool, postgres.SettingsChannel, cfg.SettingsCacheTTL)
	if err := settingsCache.Start(ctx); err != nil {
		log.Warnw("settings not loaded at startup, using defaults", "error", err)
	}
	defer settingsCache.Stop()

	// --- Domain services ---
	stockService := stock.NewService(ledger, txm)
	promotionEngine, err := promotion.NewEngine(promotions)
	if err != nil {
		log.Fatalw("failed to create promotion engine", "error", err)
	}

	orderService := order.NewService(order.Deps{
		Tx:        txm,
		Orders:    orders,
		Customers: customers,
		Carts:     carts,
		Stock:     stockService,
		Pricer:    promotionEngine,
		Numbers:   numbers,
		Events:    outbox,

		NumberStrategy: numberStrategy,
	})
	returnService := returns.NewService(returns.Deps{
		Tx:       txm,
		Returns:  returnRepo,
		Orders:   orders,
		Products: products,
		Stock:    stockService,
		Settings: settingsCache,
		Numbers:  numbers,
		Events:   outbox,

		NumberStrategy: numberStrategy,
	})
	shippingService := shipping.NewService(shipping.Deps{
		Tx:          txm,
		Shipments:   shipments,
		Orders:      orders,
		Transitions: orderService,
		Journal:     journal,
		Settings:    settingsCache,
		Events:      outbox,
	})
	reconciler := payment.NewReconciler(txm, payment.NewVerifier(cfg.PayOSChecksumKey), orders, orderService, journal, nil)

	routerCfg := v1.RouterConfig{
		Logger:       log,
		JWTValidator: auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret)),
		DB:           pool,
		Version:      cfg.Version,
		Orders:       orderService,
		Returns:      returnService,
		Shipping:     shippingService,
		Payments:     reconciler,
		Promotions:   promotionEngine,
		Stock:        stockService,
		Settings:     settings.NewService(settingsStore),
	}
	if cfg.IdempotencyEnabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
	_ = log.Sync()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("telemetry shutdown failed: %v\n", err)
	}
}
