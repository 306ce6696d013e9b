package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	Env             string
	WebhookURL      string
	WebhookSecret   string
	KafkaBrokers    []string
	InitialGrantMax float64
	TransferTimeout time.Duration
}

// LoadConfig reads .env file and returns a Config struct
func LoadConfig() *Config {
	// Try loading .env file (it might not exist in Production, which is fine)
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	return &Config{
		Port:            getEnv("PORT", "3000"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		Env:             getEnv("ENV", "development"),
		WebhookURL:      getEnv("WEBHOOK_URL", ""),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
		KafkaBrokers:    getEnvList("KAFKA_BROKERS"),
		InitialGrantMax: getEnvFloat("INITIAL_GRANT_MAX", 10000),
		TransferTimeout: getEnvDuration("TRANSFER_TIMEOUT_MS", 5*time.Second),
	}
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getEnvFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		slog.Warn("Invalid numeric env value, using fallback", "key", key, "value", value)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms <= 0 {
		slog.Warn("Invalid duration env value, using fallback", "key", key, "value", value)
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
