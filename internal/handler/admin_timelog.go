package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/model"
	"github.com/iliyamo/crowlee-bookings/internal/repository"
	"github.com/iliyamo/crowlee-bookings/internal/service"
)

// AdminTimeLogHandler serves time log review for admins.
type AdminTimeLogHandler struct {
	Logs *service.TimeLogService
	Log  logrus.FieldLogger
}

func NewAdminTimeLogHandler(logs *service.TimeLogService, log logrus.FieldLogger) *AdminTimeLogHandler {
	return &AdminTimeLogHandler{Logs: logs, Log: log}
}

type adminTimeLogReq struct {
	Status        *string    `json:"status"`
	AdminNote     *string    `json:"adminNote"`
	ClockInTime   *time.Time `json:"clockInTime"`
	ClockOutTime  *time.Time `json:"clockOutTime"`
	ForceClockOut bool       `json:"forceClockOut"`
}

// List returns all time logs, optionally filtered by ?userId= and ?status=.
func (h *AdminTimeLogHandler) List(c echo.Context) error {
	var f repository.TimeLogFilter
	if v := c.QueryParam("userId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid userId"})
		}
		f.UserID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		st := model.TimeLogStatus(v)
		f.Status = &st
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	logs, err := h.Logs.AdminList(ctx, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"timeLogs": toTimeLogsJSON(logs)})
}

// Update reviews or corrects a time log.
func (h *AdminTimeLogHandler) Update(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time log id"})
	}
	var req adminTimeLogReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	tl, err := h.Logs.AdminUpdate(ctx, adminID, id, service.AdminUpdateInput{
		Status:        req.Status,
		AdminNote:     req.AdminNote,
		ClockInTime:   req.ClockInTime,
		ClockOutTime:  req.ClockOutTime,
		ForceClockOut: req.ForceClockOut,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Time log updated successfully",
		"timeLog": toTimeLogJSON(tl),
	})
}

// Delete removes a time log.
func (h *AdminTimeLogHandler) Delete(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid time log id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Logs.AdminDelete(ctx, adminID, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Time log deleted successfully"})
}
