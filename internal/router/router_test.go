package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/crowlee-bookings/internal/handler"
	"github.com/iliyamo/crowlee-bookings/internal/middleware"
	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/service"
	"github.com/iliyamo/crowlee-bookings/internal/testutil"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

const testSecret = "router-test-secret"

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestServer() *echo.Echo {
	store := testutil.NewStore()
	log := testutil.Logger()
	events := &testutil.Events{}
	now := func() time.Time { return t0 }

	authSvc := service.NewAuthService(service.AuthConfig{Secret: testSecret, BcryptCost: bcrypt.MinCost},
		store.Users(), store.Invitations(), events, log)
	authSvc.Now = now
	logs := service.NewTimeLogService(store.TimeLogs(), events, log)
	logs.Now = now
	invs := service.NewInvitationService(store.Invitations(), "http://localhost", events, log)
	invs.Now = now
	users := service.NewUserService(store.Users(), nil, bcrypt.MinCost, log)

	return New(Deps{
		Auth:          handler.NewAuthHandler(authSvc, nil, testSecret, false, log),
		TimeLogs:      handler.NewTimeLogHandler(logs, log),
		AdminTimeLogs: handler.NewAdminTimeLogHandler(logs, log),
		Invitations:   handler.NewInvitationHandler(invs, log),
		Users:         handler.NewUserHandler(users, log),
		Secret:        testSecret,
		Log:           log,
		Now:           now,
	})
}

func cookieFor(t *testing.T, role model.Role) *http.Cookie {
	t.Helper()
	tok, err := utils.IssueSession(testSecret, 3, "u@example.com", string(role), t0, utils.SessionTTL)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: middleware.CookieName, Value: tok.Token}
}

func TestRoleGates(t *testing.T) {
	e := newTestServer()
	cases := []struct {
		name   string
		method string
		path   string
		role   model.Role
		status int
	}{
		{"no cookie on admin", http.MethodGet, "/admin/timelogs", "", http.StatusUnauthorized},
		{"client on admin", http.MethodGet, "/admin/timelogs", model.RoleClient, http.StatusForbidden},
		{"worker on admin", http.MethodGet, "/admin/invitations", model.RoleWorker, http.StatusForbidden},
		{"admin on admin", http.MethodGet, "/admin/timelogs", model.RoleAdmin, http.StatusOK},
		{"client clock in", http.MethodPost, "/timelogs", model.RoleClient, http.StatusForbidden},
		{"admin own logs", http.MethodGet, "/timelogs", model.RoleAdmin, http.StatusForbidden},
		{"worker own logs", http.MethodGet, "/timelogs", model.RoleWorker, http.StatusOK},
		{"client me", http.MethodGet, "/auth/me", model.RoleClient, http.StatusOK},
		{"anonymous me", http.MethodGet, "/auth/me", "", http.StatusUnauthorized},
		{"public validate", http.MethodGet, "/invitations/validate?token=nope", "", http.StatusNotFound},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tc.role != "" {
				req.AddCookie(cookieFor(t, tc.role))
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newTestServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("missing request id")
	}
}

func TestFrameworkErrorsUseErrorBody(t *testing.T) {
	e := newTestServer()
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	cases := []struct {
		method string
		path   string
		status int
		msg    string
	}{
		{http.MethodGet, "/no/such/route", http.StatusNotFound, "Not Found"},
		{http.MethodDelete, "/auth/login", http.StatusMethodNotAllowed, "Method Not Allowed"},
		{http.MethodGet, "/boom", http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s %s: status = %d", tc.method, tc.path, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s %s: body %q: %v", tc.method, tc.path, rec.Body.String(), err)
		}
		if body["error"] != tc.msg || len(body) != 1 {
			t.Fatalf("%s %s: body = %v", tc.method, tc.path, body)
		}
	}
}
