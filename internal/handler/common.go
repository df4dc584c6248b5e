package handler // package handler holds the HTTP handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/middleware"
	"github.com/iliyamo/crowlee-bookings/internal/service"
	"github.com/iliyamo/crowlee-bookings/internal/validator"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID extracts the user_id stored by the session middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.KeyUserID).(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case int:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// bind decodes the body into dst and runs struct validation when a
// validator is registered.  Failures are returned as validation errors.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &service.Error{Kind: service.KindValidation, Msg: "invalid request body", Err: err}
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(dst); err != nil {
		var fields validator.Errors
		if errors.As(err, &fields) {
			return &service.Error{Kind: service.KindValidation, Msg: fields.First(), Err: err}
		}
		return &service.Error{Kind: service.KindValidation, Msg: err.Error(), Err: err}
	}
	return nil
}

var kindStatus = map[service.Kind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindUnauthorized: http.StatusUnauthorized,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindConflict:     http.StatusConflict,
}

// respondError writes err as {"error": msg} with the status of its kind.
// Internal errors are logged and reported without detail.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	status, ok := kindStatus[service.KindOf(err)]
	if !ok {
		if log != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"path":       c.Path(),
				"method":     c.Request().Method,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Error("request failed")
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(status, echo.Map{"error": service.Message(err)})
}

// unauthorized is returned by handlers that expect the session middleware
// but find no identity in the context.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// ErrorHandler writes errors that reach Echo itself (unknown routes, wrong
// methods, recovered panics) in the same {"error": msg} shape as handlers.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := http.StatusInternalServerError, "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		}
		if status >= http.StatusInternalServerError && log != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"path":       c.Request().URL.Path,
				"method":     c.Request().Method,
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).Error("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": msg})
		}
		if err != nil && log != nil {
			log.WithError(err).Warn("write error response")
		}
	}
}
