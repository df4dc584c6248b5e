package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/metrics"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// Context keys set by Session.
const (
	KeyClaims = "claims"
	KeyUserID = "user_id"
	KeyRole   = "role"
)

// RevocationChecker reports whether an otherwise valid token was revoked.
type RevocationChecker interface {
	Revoked(ctx context.Context, c *utils.SessionClaims) (bool, error)
}

// SessionConfig configures Session.  Revocations and Log are optional; Now
// defaults to time.Now.
type SessionConfig struct {
	Secret      string
	Revocations RevocationChecker
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// Session verifies the session cookie and stores the claims, user id and
// role in the context.  Requests without a usable session get 401, except
// browser page loads which are redirected to the login page.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				metrics.ObserveSessionRejection("missing")
				return reject(c, "unauthorized")
			}

			claims, err := utils.ParseSession(cfg.Secret, cookie.Value, now())
			if err != nil {
				reason := "invalid"
				if errors.Is(err, utils.ErrTokenExpired) {
					reason = "expired"
				}
				metrics.ObserveSessionRejection(reason)
				return reject(c, "invalid token")
			}

			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.Revoked(c.Request().Context(), claims)
				if err != nil && cfg.Log != nil {
					// revocation store outage: accept the signed token
					cfg.Log.WithError(err).Warn("session revocation check failed")
				}
				if revoked {
					metrics.ObserveSessionRejection("revoked")
					return reject(c, "invalid token")
				}
			}

			c.Set(KeyClaims, claims)
			c.Set(KeyUserID, claims.UserID)
			c.Set(KeyRole, claims.Role)
			return next(c)
		}
	}
}

func reject(c echo.Context, msg string) error {
	req := c.Request()
	if req.Method == http.MethodGet && strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		return c.Redirect(http.StatusSeeOther, "/login?redirect="+url.QueryEscape(req.URL.RequestURI()))
	}
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
