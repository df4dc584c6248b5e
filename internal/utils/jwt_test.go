package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func TestSessionValidUntilExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	tok, err := IssueSession(testSecret, 42, "w@example.com", "worker", now, SessionTTL)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !tok.ExpiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expiry = %v", tok.ExpiresAt)
	}
	if tok.ID == "" {
		t.Fatal("missing token id")
	}

	claims, err := ParseSession(testSecret, tok.Token, now)
	if err != nil {
		t.Fatalf("parse at issue time: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "w@example.com" || claims.Role != "worker" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := ParseSession(testSecret, tok.Token, tok.ExpiresAt.Add(-time.Second)); err != nil {
		t.Fatalf("parse one second before expiry: %v", err)
	}
	if _, err := ParseSession(testSecret, tok.Token, tok.ExpiresAt); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("parse at expiry: err = %v", err)
	}
	if _, err := ParseSession(testSecret, tok.Token, tok.ExpiresAt.Add(time.Hour)); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("parse after expiry: err = %v", err)
	}
}

func TestSessionRejectsTampering(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	tok, err := IssueSession(testSecret, 7, "c@example.com", "client", now, SessionTTL)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ParseSession("other-secret", tok.Token, now); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret: err = %v", err)
	}

	parts := strings.Split(tok.Token, ".")
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID: 7, Email: "c@example.com", Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SigningString()
	if err != nil {
		t.Fatal(err)
	}
	spliced := forged + "." + parts[2]
	if _, err := ParseSession(testSecret, spliced, now); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("spliced payload: err = %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		UserID: 7, Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSession(testSecret, unsigned, now); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("none alg: err = %v", err)
	}

	if _, err := ParseSession(testSecret, "not-a-token", now); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestSessionRequiresExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{UserID: 1, Role: "admin"}).
		SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSession(testSecret, raw, now); err == nil {
		t.Fatal("token without exp accepted")
	}
}

func TestNewInvitationToken(t *testing.T) {
	a, err := NewInvitationToken()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewInvitationToken()
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if a == b {
		t.Fatal("tokens repeat")
	}
}
