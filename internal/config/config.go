package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string
	DBConnString    string
	ShutdownTimeout time.Duration

	BackendURL     string
	BackendTimeout time.Duration
	RatesURL       string
	RatesTTL       time.Duration

	RedisAddr     string
	SessionTTL    time.Duration
	SubmitTimeout time.Duration

	KafkaBrokers []string
	OrderTopic   string

	CORSOrigins  []string
	RateLimitRPS float64
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		DBConnString:    envOrDefault("DB_DSN", ""),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),

		BackendURL:     strings.TrimRight(envOrDefault("BACKEND_URL", "http://localhost:5000/api"), "/"),
		BackendTimeout: envDuration("BACKEND_TIMEOUT_SECONDS", 10*time.Second),
		RatesURL:       envOrDefault("RATES_URL", "https://api.exchangerate-api.com/v4/latest/INR"),
		RatesTTL:       envDuration("RATES_TTL_SECONDS", time.Hour),

		RedisAddr:     envOrDefault("REDIS_ADDR", ""),
		SessionTTL:    envDuration("SESSION_TTL_SECONDS", 2*time.Hour),
		SubmitTimeout: envDuration("SUBMIT_TIMEOUT_SECONDS", 30*time.Second),

		KafkaBrokers: envList("KAFKA_BROKERS"),
		OrderTopic:   envOrDefault("ORDER_TOPIC", "checkout.orders"),

		CORSOrigins:  envList("CORS_ORIGINS"),
		RateLimitRPS: envFloat("RATE_LIMIT_RPS", 20),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
