// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string

	DatabaseURL string

	MediaDir     string
	MediaBaseURL string

	TwelveLabsAPIKey  string
	TwelveLabsBaseURL string
	IndexName         string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	KafkaBrokers    []string
	KafkaTopic      string
	OutboxInterval  time.Duration
	OutboxBatchSize int

	PollInterval    time.Duration
	MaxPollAttempts int

	MaxUploadBytes int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:              getEnv("ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		MediaDir:          getEnv("MEDIA_DIR", "./data/media"),
		MediaBaseURL:      getEnv("MEDIA_BASE_URL", "http://localhost:8080/media"),
		TwelveLabsAPIKey:  os.Getenv("TWELVE_LABS_API_KEY"),
		TwelveLabsBaseURL: os.Getenv("TWELVE_LABS_BASE_URL"),
		IndexName:         getEnv("TWELVE_LABS_INDEX_NAME", "My Index (Default)"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "video-indexing-events"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.TwelveLabsAPIKey == "" {
		return nil, fmt.Errorf("TWELVE_LABS_API_KEY is empty")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.OutboxInterval, err = durationEnv("OUTBOX_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxBatchSize, err = intEnv("OUTBOX_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxPollAttempts, err = intEnv("MAX_POLL_ATTEMPTS", 60); err != nil {
		return nil, err
	}

	maxUploadMB, err := intEnv("MAX_UPLOAD_MB", 500)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUploadMB) << 20

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
