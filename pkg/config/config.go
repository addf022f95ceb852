package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JWTSecret string
	JWTExpiry time.Duration

	DatabaseDSN string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	ClassifierURL     string
	ExtractorURL      string
	ClassifierTimeout time.Duration
	ExtractorTimeout  time.Duration
	ServiceRetries    int
	RetryBaseDelay    time.Duration

	SyncBatchSize     int
	ClassifyBatchSize int
	ExtractBatchSize  int
	ClassifyPause     time.Duration
	ExtractPause      time.Duration

	SyncWorkers    int
	StaleSyncAfter time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiry: getDuration("JWT_EXPIRY", 24*time.Hour),

		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=finmail port=5432 sslmode=disable"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		ClassifierURL:     getEnv("CLASSIFIER_URL", ""),
		ExtractorURL:      getEnv("EXTRACTOR_URL", ""),
		ClassifierTimeout: getDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
		ExtractorTimeout:  getDuration("EXTRACTOR_TIMEOUT", 45*time.Second),
		ServiceRetries:    getInt("SERVICE_RETRIES", 3),
		RetryBaseDelay:    getDuration("RETRY_BASE_DELAY", time.Second),

		SyncBatchSize:     getInt("SYNC_BATCH_SIZE", 10),
		ClassifyBatchSize: getInt("CLASSIFY_BATCH_SIZE", 5),
		ExtractBatchSize:  getInt("EXTRACT_BATCH_SIZE", 3),
		ClassifyPause:     getDuration("CLASSIFY_PAUSE", 500*time.Millisecond),
		ExtractPause:      getDuration("EXTRACT_PAUSE", 2*time.Second),

		SyncWorkers:    getInt("SYNC_WORKERS", 3),
		StaleSyncAfter: getDuration("STALE_SYNC_AFTER", 30*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
