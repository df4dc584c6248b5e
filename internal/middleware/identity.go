package middleware

// identity.go holds helpers for reading the authenticated session from the
// echo context after Session has run.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// ClaimsFrom returns the verified session claims.
func ClaimsFrom(c echo.Context) (*utils.SessionClaims, bool) {
	claims, ok := c.Get(KeyClaims).(*utils.SessionClaims)
	return claims, ok && claims != nil
}

// CurrentActor returns the authenticated user as a model.Actor.
func CurrentActor(c echo.Context) (model.Actor, bool) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		return model.Actor{}, false
	}
	return model.Actor{UserID: claims.UserID, Email: claims.Email, Role: model.Role(claims.Role)}, true
}

// userID returns the authenticated user id as a string, or "anon".
func userID(c echo.Context) string {
	if id, ok := c.Get(KeyUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
