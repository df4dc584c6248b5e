package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BASE_URL", "https://book.example.com/")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.InsecureSecret || cfg.JWTSecret == "" {
		t.Fatal("expected development secret fallback")
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("ttl = %v", cfg.SessionTTL)
	}
	if cfg.BaseURL != "https://book.example.com" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("bcrypt cost = %d", cfg.BcryptCost)
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InsecureSecret || !cfg.Production() {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("BCRYPT_COST", "2")
	if _, err := Load(); err == nil {
		t.Fatal("bcrypt cost 2 accepted")
	}
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("SESSION_TTL_HOURS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("zero ttl accepted")
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	cfg := LoadRateLimitConfig()
	if cfg.KeyStrategy != KeyByIPEmail || cfg.Capacity != 10 || cfg.RefillInterval != 6*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}

	t.Setenv("RATE_LIMIT_CAPACITY", "30")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "IP")
	cfg = LoadRateLimitConfig()
	if cfg.Capacity != 30 || cfg.RefillInterval != time.Minute || cfg.KeyStrategy != KeyByIP {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TTL != 30*time.Minute {
		t.Fatalf("ttl = %v, want the full refill time", cfg.TTL)
	}

	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "user_route")
	if got := LoadRateLimitConfig().KeyStrategy; got != KeyByIPEmail {
		t.Fatalf("unknown strategy kept as %q", got)
	}
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	if got := LoadRedisConfig().Addr; got != "cache:6380" {
		t.Fatalf("addr = %q", got)
	}
}
