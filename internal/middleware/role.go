package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowlee-bookings/internal/metrics"
	"github.com/iliyamo/crowlee-bookings/internal/model"
)

// RequireRole returns a middleware that enforces that the authenticated user
// has one of the given roles.  It must run after Session, which stores the
// role under the "role" key.  Other roles get 403 Forbidden.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(KeyRole).(string)
			if !ok || !allowed[role] {
				metrics.ObserveSessionRejection("forbidden")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
