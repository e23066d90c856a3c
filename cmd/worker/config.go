package main

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type config struct {
	DatabaseURL string
	DBMaxConns  int
	Env         string
	LogLevel    string
	Version     string

	KafkaBrokers []string
	KafkaTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxRetries   int
	CleanupInterval    time.Duration
	WebhookRetention   time.Duration
	DriftAuditInterval time.Duration

	OTelEndpoint   string
	OTelAuthHeader string
	OTelInsecure   bool
}

func loadConfig() config {
	return config{
		DatabaseURL: mustEnv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 5),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Version:     getEnv("APP_VERSION", "0.1.0"),

		KafkaBrokers: splitList(mustEnv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "storeops.events"),

		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:   getEnvInt("OUTBOX_MAX_RETRIES", 5),
		CleanupInterval:    getEnvDuration("CLEANUP_INTERVAL", time.Hour),
		WebhookRetention:   getEnvDuration("WEBHOOK_RETENTION", 30*24*time.Hour),
		DriftAuditInterval: getEnvDuration("DRIFT_AUDIT_INTERVAL", 15*time.Minute),

		OTelEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelAuthHeader: getEnv("OTEL_AUTH_HEADER", ""),
		OTelInsecure:   strings.EqualFold(getEnv("OTEL_INSECURE", "false"), "true"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
