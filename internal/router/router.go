package router // package router defines how HTTP routes are registered for the API

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/handler"
	"github.com/iliyamo/crowlee-bookings/internal/middleware"
	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/validator"
)

// Deps is everything the route table needs.
type Deps struct {
	Auth          *handler.AuthHandler
	TimeLogs      *handler.TimeLogHandler
	AdminTimeLogs *handler.AdminTimeLogHandler
	Invitations   *handler.InvitationHandler
	Users         *handler.UserHandler

	Secret      string
	Revocations middleware.RevocationChecker // optional
	AuthLimiter echo.MiddlewareFunc          // optional, guards login and register
	Ready       echo.HandlerFunc             // optional, defaults to liveness
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// New returns an Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.Metrics())

	RegisterRoutes(e, d.Ready)
	RegisterAPI(e, d)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// health probes and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	if ready == nil {
		ready = handler.Health
	}
	e.GET("/readyz", ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the authentication, time tracking, invitation and
// user routes with their session and role requirements.
func RegisterAPI(e *echo.Echo, d Deps) {
	session := middleware.Session(middleware.SessionConfig{
		Secret:      d.Secret,
		Revocations: d.Revocations,
		Log:         d.Log,
		Now:         d.Now,
	})
	limiter := d.AuthLimiter
	if limiter == nil {
		limiter = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// Public: sign-up, sign-in, sign-out and invitation lookup.
	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register, limiter)
	auth.POST("/login", d.Auth.Login, limiter)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/me", d.Auth.Me, session)
	e.GET("/invitations/validate", d.Invitations.Validate)

	// Any signed-in user.
	e.PUT("/user/profile", d.Users.UpdateProfile, session)

	// Worker time tracking.  Reading a single log is owner-or-admin and the
	// ownership check happens in the service.
	tl := e.Group("/timelogs", session)
	worker := middleware.RequireRole(model.RoleWorker)
	tl.POST("", d.TimeLogs.ClockIn, worker)
	tl.GET("", d.TimeLogs.List, worker)
	tl.GET("/active", d.TimeLogs.Active, worker)
	tl.PATCH("/:id", d.TimeLogs.ClockOut, worker)
	tl.GET("/:id", d.TimeLogs.Get, middleware.RequireRole(model.RoleWorker, model.RoleAdmin))

	// Admin area.
	admin := e.Group("/admin", session, middleware.RequireRole(model.RoleAdmin))
	admin.GET("/timelogs", d.AdminTimeLogs.List)
	admin.PUT("/timelogs/:id", d.AdminTimeLogs.Update)
	admin.DELETE("/timelogs/:id", d.AdminTimeLogs.Delete)
	admin.POST("/invitations", d.Invitations.Create)
	admin.GET("/invitations", d.Invitations.List)
	admin.DELETE("/invitations/:id", d.Invitations.Revoke)
	admin.GET("/users", d.Users.List)
	admin.PUT("/users/:id", d.Users.Update)
	admin.PUT("/users/:id/password", d.Users.ResetPassword)
	admin.DELETE("/users/:id", d.Users.Delete)
}
