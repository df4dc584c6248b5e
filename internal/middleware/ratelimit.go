package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/config"
	"github.com/iliyamo/crowlee-bookings/internal/metrics"
	"github.com/iliyamo/crowlee-bookings/internal/model"
)

// bucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms, capacity, refill, interval_ms, ttl =
	tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'at')
local tokens, at = tonumber(state[1]), tonumber(state[2])
if tokens == nil or at == nil then
	tokens, at = capacity, now_ms
end

local steps = math.floor(math.max(0, now_ms - at) / interval_ms)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	at = at + steps * interval_ms
end

local allowed, retry_ms = 0, 0
if tokens > 0 then
	allowed, tokens = 1, tokens - 1
else
	retry_ms = math.max(0, interval_ms - (now_ms - at))
end

redis.call('HSET', key, 'tokens', tokens, 'at', at)
redis.call('EXPIRE', key, ttl)
return { allowed, tokens, retry_ms }
`)

// maxEmailPeek bounds how much of a request body is read to find the email.
const maxEmailPeek = 8 << 10

type bucketDecision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type tokenBucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	log logrus.FieldLogger
	now func() time.Time
}

func (b *tokenBucket) take(ctx context.Context, key string) (bucketDecision, error) {
	res, err := bucketScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return bucketDecision{}, err
	}
	if len(res) != 3 {
		return bucketDecision{}, redis.Nil
	}
	return bucketDecision{
		allowed:   res[0] == 1,
		remaining: res[1],
		retry:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket returns a Redis-backed token bucket limiter for the
// credential endpoints. It passes every request through when disabled, when
// rdb is nil, or when Redis fails.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	b := &tokenBucket{cfg: cfg, rdb: rdb, log: log, now: time.Now}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			d, err := b.take(c.Request().Context(), key)
			if err != nil {
				b.log.WithError(err).WithField("key", key).Warn("ratelimit: redis error, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if d.allowed {
				return next(c)
			}

			secs := int(math.Ceil(d.retry.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			metrics.ObserveAuth(authAction(c), "rate_limited")
			if cfg.Debug {
				b.log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("ratelimit: blocked")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many attempts, try again later",
				"retry_after": secs,
			})
		}
	}
}

// rateKey builds <prefix>:<action>:ip:<addr>[:email:<email>]. A body
// without a readable email shares the "-" bucket of its address.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{cfg.Prefix, authAction(c), "ip", ip}
	if cfg.KeyStrategy == config.KeyByIPEmail {
		email := requestEmail(c.Request())
		if email == "" {
			email = "-"
		}
		parts = append(parts, "email", email)
	}
	return strings.Join(parts, ":")
}

// requestEmail returns the normalized "email" field of a JSON body and
// leaves the body readable for the handler.
func requestEmail(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(req.Body, maxEmailPeek))
	req.Body = readCloser{io.MultiReader(bytes.NewReader(head), req.Body), req.Body}
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &body) != nil {
		return ""
	}
	return model.NormalizeEmail(body.Email)
}

type readCloser struct {
	io.Reader
	io.Closer
}

// authAction names the limited endpoint for metrics and keys.
func authAction(c echo.Context) string {
	p := c.Path()
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
