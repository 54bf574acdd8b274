package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "REDIS_ADDR", "KAFKA_BROKERS", "SUBMIT_TIMEOUT_SECONDS", "RATE_LIMIT_RPS", "BACKEND_URL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.RedisAddr != "" || cfg.KafkaBrokers != nil {
		t.Fatalf("expected optional backends to be disabled, got %+v", cfg)
	}
	if cfg.SubmitTimeout != 30*time.Second {
		t.Fatalf("expected 30s submit timeout, got %v", cfg.SubmitTimeout)
	}
	if cfg.RateLimitRPS != 20 {
		t.Fatalf("expected 20 rps, got %v", cfg.RateLimitRPS)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://shop.example.com/api/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg := FromEnv()
	if cfg.BackendURL != "https://shop.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", cfg.SessionTTL)
	}
	if cfg.RateLimitRPS != 20 {
		t.Fatalf("expected fallback rps, got %v", cfg.RateLimitRPS)
	}
}
