package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/service"
)

// InvitationHandler serves invitation management and the public validity check.
type InvitationHandler struct {
	Invitations *service.InvitationService
	Log         logrus.FieldLogger
}

func NewInvitationHandler(invs *service.InvitationService, log logrus.FieldLogger) *InvitationHandler {
	return &InvitationHandler{Invitations: invs, Log: log}
}

type createInvitationReq struct {
	Role           string `json:"role" validate:"required"`
	ExpiresInHours *int   `json:"expiresInHours"`
}

// Create issues a new invitation link.
func (h *InvitationHandler) Create(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createInvitationReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	created, err := h.Invitations.Create(ctx, adminID, req.Role, req.ExpiresInHours)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"invitation": toInvitationJSON(created.Invitation, h.Invitations.Now(), created.URL),
		"inviteUrl":  created.URL,
	})
}

// List returns every invitation with its current status.
func (h *InvitationHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	invs, err := h.Invitations.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	now := h.Invitations.Now()
	out := make([]invitationJSON, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitationJSON(inv, now, h.Invitations.InviteURL(inv.Token)))
	}
	return c.JSON(http.StatusOK, echo.Map{"invitations": out})
}

// Revoke deletes an invitation.
func (h *InvitationHandler) Revoke(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invitation id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Invitations.Revoke(ctx, adminID, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Invitation deleted successfully"})
}

// Validate tells the registration page whether ?token= is usable.
func (h *InvitationHandler) Validate(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	inv, err := h.Invitations.Validate(ctx, c.QueryParam("token"))
	if err != nil {
		if kind := service.KindOf(err); kind == service.KindValidation || kind == service.KindNotFound {
			return c.JSON(kindStatus[kind], echo.Map{"valid": false, "error": service.Message(err)})
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":     true,
		"role":      inv.Role,
		"expiresAt": inv.ExpiresAt,
	})
}
