package utils // package utils provides helpers for session tokens, invitation tokens and hashing

import (
	"crypto/rand"  // secure random number generation
	"encoding/hex" // hex encoding for opaque tokens
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens
	"github.com/google/uuid"       // token ids for revocation
)

// SessionTTL is how long a session token stays valid after issuance.
const SessionTTL = 7 * 24 * time.Hour

var (
	// ErrTokenInvalid covers tampered, malformed and wrongly signed tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned once the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// SessionClaims is the payload of a session token. The camelCase names are
// what browser clients decode.
type SessionClaims struct {
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	// IssuedAtMs is the issue time in unix milliseconds. iat only carries
	// whole seconds, which is too coarse to order a token against a
	// revocation made in the same second.
	IssuedAtMs int64 `json:"iatMs,omitempty"`
	jwt.RegisteredClaims
}

// SessionToken is a signed session along with its metadata.
type SessionToken struct {
	Token     string    // the serialized JWT
	ID        string    // jti, used for logout revocation
	IssuedAt  time.Time // UTC issue time, second precision
	ExpiresAt time.Time // UTC expiry, second precision
}

// IssueSession signs an HS256 session token for the given identity. The
// token expires ttl after now.
func IssueSession(secret string, userID uint64, email, role string, now time.Time, ttl time.Duration) (SessionToken, error) {
	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(ttl)
	claims := SessionClaims{
		UserID:     userID,
		Email:      email,
		Role:       role,
		IssuedAtMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ID: claims.ID, IssuedAt: iat, ExpiresAt: exp}, nil
}

// IssuedAtMillis returns the issue time in unix milliseconds, falling back
// to iat for tokens without iatMs. The second boolean is false when neither
// is present.
func (c *SessionClaims) IssuedAtMillis() (int64, bool) {
	if c.IssuedAtMs > 0 {
		return c.IssuedAtMs, true
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.UnixMilli(), true
	}
	return 0, false
}

// ParseSession verifies the signature and expiry of raw at time now and
// returns its claims. A token is valid only while now is before its expiry.
func ParseSession(secret, raw string, now time.Time) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrTokenInvalid
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || claims.UserID == 0 || claims.Role == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// NewInvitationToken returns 32 bytes of secure random data as 64 hex chars.
func NewInvitationToken() (string, error) {
	return randomHex(32)
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
