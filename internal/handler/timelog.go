package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/middleware"
	"github.com/iliyamo/crowlee-bookings/internal/service"
)

// TimeLogHandler serves the worker clock-in/clock-out endpoints.
type TimeLogHandler struct {
	Logs *service.TimeLogService
	Log  logrus.FieldLogger
}

func NewTimeLogHandler(logs *service.TimeLogService, log logrus.FieldLogger) *TimeLogHandler {
	return &TimeLogHandler{Logs: logs, Log: log}
}

// Locations arrive either as an object or as a JSON string holding one, so
// they are kept raw and decoded by the service.
type clockInReq struct {
	ClockInLocation json.RawMessage `json:"clockInLocation"`
	WorkerNote      string          `json:"workerNote"`
}

type clockOutReq struct {
	ClockOutLocation json.RawMessage `json:"clockOutLocation"`
	WorkerNote       string          `json:"workerNote"`
}

// ClockIn opens a time log for the current worker.
func (h *TimeLogHandler) ClockIn(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req clockInReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	tl, err := h.Logs.ClockIn(ctx, uid, service.ClockInput{Location: req.ClockInLocation, Note: req.WorkerNote})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "timeLog": toTimeLogJSON(tl)})
}

// ClockOut closes the worker's own open time log.
func (h *TimeLogHandler) ClockOut(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time log id"})
	}
	var req clockOutReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	tl, err := h.Logs.ClockOut(ctx, uid, id, service.ClockInput{Location: req.ClockOutLocation, Note: req.WorkerNote})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "timeLog": toTimeLogJSON(tl)})
}

// List returns the current worker's time logs, newest first.
func (h *TimeLogHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	logs, err := h.Logs.ListOwn(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"timeLogs": toTimeLogsJSON(logs)})
}

// Active returns the open time log or null.
func (h *TimeLogHandler) Active(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	tl, err := h.Logs.Active(ctx, uid)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if tl == nil {
		return c.JSON(http.StatusOK, echo.Map{"activeTimeLog": nil})
	}
	return c.JSON(http.StatusOK, echo.Map{"activeTimeLog": toTimeLogJSON(*tl)})
}

// Get returns one time log to its owner or to an admin.
func (h *TimeLogHandler) Get(c echo.Context) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time log id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	tl, err := h.Logs.Get(ctx, actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"timeLog": toTimeLogJSON(tl)})
}
