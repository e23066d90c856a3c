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
	Port        string
	Env         string
	LogLevel    string
	Version     string

	JWTSecret        string
	PayOSChecksumKey string

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration
	SettingsCacheTTL   time.Duration

	// strict or cached
	NumeratorStrategy string

	OTelEndpoint   string
	OTelAuthHeader string
	OTelInsecure   bool
}

func loadConfig() config {
	return config{
		DatabaseURL: mustEnv("DATABASE_URL"),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 25),
		Port:        getEnv("APP_PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Version:     getEnv("APP_VERSION", "0.1.0"),

		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		PayOSChecksumKey: mustEnv("PAYOS_CHECKSUM_KEY"),

		IdempotencyEnabled: getEnv("IDEMPOTENCY_ENABLED", "true") == "true",
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		SettingsCacheTTL:   getEnvDuration("SETTINGS_CACHE_TTL", time.Minute),

		NumeratorStrategy: getEnv("NUMERATOR_STRATEGY", "strict"),

		OTelEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelAuthHeader: getEnv("OTEL_AUTH_HEADER", ""),
		OTelInsecure:   strings.EqualFold(getEnv("OTEL_INSECURE", "false"), "true"),
	}
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
