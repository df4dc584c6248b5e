package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

const testSecret = "middleware-test-secret"

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type denylist map[string]bool

func (d denylist) Revoked(_ context.Context, c *utils.SessionClaims) (bool, error) {
	return d[c.ID], nil
}

func newProtected(cfg SessionConfig, roles ...model.Role) *echo.Echo {
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return t0 }
	}
	e := echo.New()
	mws := []echo.MiddlewareFunc{Session(cfg)}
	if len(roles) > 0 {
		mws = append(mws, RequireRole(roles...))
	}
	e.GET("/admin/timelogs", func(c echo.Context) error {
		actor, ok := CurrentActor(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"userId": actor.UserID, "role": actor.Role})
	}, mws...)
	return e
}

func sessionToken(t *testing.T, role model.Role, issued time.Time) utils.SessionToken {
	t.Helper()
	tok, err := utils.IssueSession(testSecret, 9, "u@example.com", string(role), issued, utils.SessionTTL)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(e *echo.Echo, token string, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/timelogs?status=pending", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSessionStates(t *testing.T) {
	e := newProtected(SessionConfig{}, model.RoleAdmin)
	admin := sessionToken(t, model.RoleAdmin, t0)
	client := sessionToken(t, model.RoleClient, t0)
	stale := sessionToken(t, model.RoleAdmin, t0.Add(-8*24*time.Hour))

	cases := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{"no cookie", "", http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"garbage", "not-a-jwt", http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"expired", stale.Token, http.StatusUnauthorized, `{"error":"invalid token"}`},
		{"role mismatch", client.Token, http.StatusForbidden, `{"error":"forbidden"}`},
		{"admin", admin.Token, http.StatusOK, `{"role":"admin","userId":9}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.token, "")
			if rec.Code != tc.status {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if got := trimNL(rec.Body.String()); got != tc.body {
				t.Fatalf("body = %s", got)
			}
		})
	}
}

func TestSessionWrongSecret(t *testing.T) {
	e := newProtected(SessionConfig{Secret: "other-secret"})
	rec := do(e, sessionToken(t, model.RoleAdmin, t0).Token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSessionRedirectsBrowser(t *testing.T) {
	e := newProtected(SessionConfig{})
	rec := do(e, "", "text/html,application/xhtml+xml")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	want := "/login?redirect=%2Fadmin%2Ftimelogs%3Fstatus%3Dpending"
	if loc := rec.Header().Get(echo.HeaderLocation); loc != want {
		t.Fatalf("location = %q", loc)
	}
}

func TestSessionDenylist(t *testing.T) {
	tok := sessionToken(t, model.RoleWorker, t0)
	e := newProtected(SessionConfig{Revocations: denylist{tok.ID: true}})
	if rec := do(e, tok.Token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d", rec.Code)
	}
	other := sessionToken(t, model.RoleWorker, t0)
	if rec := do(e, other.Token, ""); rec.Code != http.StatusOK {
		t.Fatalf("live token status = %d", rec.Code)
	}
}

func trimNL(s string) string {
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s
}
