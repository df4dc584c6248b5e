package config

import (
	"strings"
	"time"
)

// Rate limit key strategies. KeyByIP buckets attempts per client address
// and endpoint; KeyByIPEmail also keys on the email in the request body.
const (
	KeyByIP      = "ip"
	KeyByIPEmail = "ip_email"
)

// RateLimitConfig configures the Redis token bucket guarding the login and
// registration endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // burst size
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // refill period
	TTL            time.Duration // idle bucket lifetime in Redis
	KeyStrategy    string        // KeyByIP or KeyByIPEmail
	Prefix         string
	Debug          bool // log every blocked request
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables. The defaults allow a
// burst of 10 attempts per client and account, refilled at one every 6
// seconds.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", KeyByIPEmail)),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "bookings:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.KeyStrategy != KeyByIP {
		cfg.KeyStrategy = KeyByIPEmail
	}
	cfg.Capacity = max(cfg.Capacity, 1)
	cfg.RefillTokens = max(cfg.RefillTokens, 1)
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	// a bucket must outlive the time it takes to refill completely
	cfg.TTL = max(cfg.TTL, time.Duration(cfg.Capacity)*cfg.RefillInterval)
	return cfg
}
