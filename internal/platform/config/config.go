// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development-safe default; production
// deployments override via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Database captures persistence configuration. An empty URL selects the
// in-memory stores.
type Database struct {
	URL string
}

// Redis captures the profile cache configuration. An empty URL disables
// caching.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures notification publishing configuration. No brokers means
// notifications are dropped.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Validators selects validator variants and their endpoints. Live variants
// require a base URL; without one the deterministic stand-in is used.
type Validators struct {
	RUTBaseURL        string
	BackgroundBaseURL string
	BiometricBaseURL  string

	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

// Workflow captures transition policy knobs.
type Workflow struct {
	BiometricThreshold     float64
	RUTInvalidManualReview bool
	SpeculativeChecks      bool

	// ScoreWeights selects the trust score weight preset: "default" or
	// "legacy".
	ScoreWeights string
}

// Config is the complete runtime configuration.
type Config struct {
	Server     Server
	Database   Database
	Redis      Redis
	Kafka      Kafka
	Validators Validators
	Workflow   Workflow
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("CONFIA_ADDR", ":8080"),
			JWTSigningKey: envString("CONFIA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Database: Database{
			URL: os.Getenv("CONFIA_DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("CONFIA_REDIS_URL"),
			PoolSize:     envInt("CONFIA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CONFIA_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CONFIA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CONFIA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CONFIA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: envList("CONFIA_KAFKA_BROKERS"),
			Topic:   envString("CONFIA_KAFKA_TOPIC", "provider-notifications"),
		},
		Validators: Validators{
			RUTBaseURL:        os.Getenv("CONFIA_RUT_REGISTRY_URL"),
			BackgroundBaseURL: os.Getenv("CONFIA_BACKGROUND_CHECK_URL"),
			BiometricBaseURL:  os.Getenv("CONFIA_BIOMETRIC_URL"),
			MaxRetries:        envInt("CONFIA_VALIDATOR_MAX_RETRIES", 2),
			Backoff:           envDuration("CONFIA_VALIDATOR_BACKOFF", 250*time.Millisecond),
			Timeout:           envDuration("CONFIA_VALIDATOR_TIMEOUT", 5*time.Second),
		},
		Workflow: Workflow{
			BiometricThreshold:     envFloat("CONFIA_BIOMETRIC_THRESHOLD", 0.85),
			RUTInvalidManualReview: os.Getenv("CONFIA_RUT_INVALID_MANUAL_REVIEW") == "true",
			SpeculativeChecks:      os.Getenv("CONFIA_SPECULATIVE_CHECKS") == "true",
			ScoreWeights:           envString("CONFIA_SCORE_WEIGHTS", "default"),
		},
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
