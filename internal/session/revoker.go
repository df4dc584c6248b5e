// Package session keeps server-side revocation state for otherwise
// stateless session tokens. It is backed by Redis; with no client every
// method is a no-op and every token is considered live.
package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// Revoker records revoked token ids and per-user revocation watermarks.
type Revoker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRevoker returns a revoker using rdb. ttl bounds how long a watermark is
// kept and should equal the session lifetime.
func NewRevoker(rdb *redis.Client, prefix string, ttl time.Duration) *Revoker {
	if prefix == "" {
		prefix = "sess"
	}
	return &Revoker{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *Revoker) enabled() bool { return r != nil && r.rdb != nil }

func (r *Revoker) tokenKey(jti string) string { return r.prefix + ":revoked:" + jti }

func (r *Revoker) userKey(userID uint64) string {
	return r.prefix + ":user_revoked_before_ms:" + strconv.FormatUint(userID, 10)
}

// RevokeToken denylists one token until its natural expiry.
func (r *Revoker) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	if !r.enabled() || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, r.tokenKey(jti), 1, ttl).Err()
}

// RevokeUser rejects every token for userID issued at or before at, with
// millisecond precision.
func (r *Revoker) RevokeUser(ctx context.Context, userID uint64, at time.Time) error {
	if !r.enabled() {
		return nil
	}
	return r.rdb.Set(ctx, r.userKey(userID), at.UnixMilli(), r.ttl).Err()
}

// Revoked reports whether claims belong to a revoked token.
func (r *Revoker) Revoked(ctx context.Context, c *utils.SessionClaims) (bool, error) {
	if !r.enabled() {
		return false, nil
	}
	if c.ID != "" {
		n, err := r.rdb.Exists(ctx, r.tokenKey(c.ID)).Result()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	before, err := r.rdb.Get(ctx, r.userKey(c.UserID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return IssuedNotAfter(c, before), nil
}

// IssuedNotAfter reports whether the token was issued at or before the
// watermark in unix milliseconds. Tokens without an issue time are treated
// as old.
func IssuedNotAfter(c *utils.SessionClaims, watermarkMs int64) bool {
	issued, ok := c.IssuedAtMillis()
	return !ok || issued <= watermarkMs
}
