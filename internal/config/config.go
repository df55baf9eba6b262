package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the chat service.
type Config struct {
	BindAddr         string
	MetricsNamespace string
	ShutdownTimeout  time.Duration

	AllowAnyOrigin bool

	DatabaseURL    string
	CRMDatabaseURL string

	OpenAIAPIKey       string
	ChatModel          string
	UnderstandingModel string
	SummaryModel       string
	EmbeddingModel     string
	CompanyID          string

	SessionTimeout    time.Duration
	BusinessUTCOffset time.Duration

	BackgroundWorkers int
	BackgroundQueue   int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "minaai"),
		AllowAnyOrigin:     false,
		DatabaseURL:        trimmedEnv("DATABASE_URL"),
		CRMDatabaseURL:     trimmedEnv("CRM_DATABASE_URL"),
		OpenAIAPIKey:       trimmedEnv("OPENAI_API_KEY"),
		ChatModel:          envOrDefault("OPENAI_CHAT_MODEL", "gpt-4"),
		UnderstandingModel: envOrDefault("UNDERSTANDING_MODEL", "gpt-4o-mini"),
		SummaryModel:       envOrDefault("SUMMARY_MODEL", "gpt-3.5-turbo"),
		EmbeddingModel:     envOrDefault("EMBEDDING_MODEL", "text-embedding-3-large"),
		CompanyID:          envOrDefault("COMPANY_UUID", "fc7e5ef0-2362-4619-8e60-b3ebe867ade2"),
		ShutdownTimeout:    15 * time.Second,
		SessionTimeout:     24 * time.Hour,
		// Deployment runs on Malaysia time; stored timestamps follow it.
		BusinessUTCOffset: 8 * time.Hour,
		BackgroundWorkers: 4,
		BackgroundQueue:   128,
	}
	if cfg.CRMDatabaseURL == "" {
		cfg.CRMDatabaseURL = cfg.DatabaseURL
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTimeout, err = durationFromEnv("APP_SESSION_TIMEOUT", cfg.SessionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BusinessUTCOffset, err = durationFromEnv("APP_BUSINESS_UTC_OFFSET", cfg.BusinessUTCOffset)
	if err != nil {
		return Config{}, err
	}
	cfg.BackgroundWorkers, err = intFromEnv("APP_BACKGROUND_WORKERS", cfg.BackgroundWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.BackgroundQueue, err = intFromEnv("APP_BACKGROUND_QUEUE", cfg.BackgroundQueue)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTimeout < time.Minute {
		return Config{}, fmt.Errorf("APP_SESSION_TIMEOUT must be at least 1m")
	}
	if cfg.BackgroundWorkers <= 0 {
		return Config{}, fmt.Errorf("APP_BACKGROUND_WORKERS must be positive")
	}
	if cfg.BackgroundQueue <= 0 {
		return Config{}, fmt.Errorf("APP_BACKGROUND_QUEUE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
