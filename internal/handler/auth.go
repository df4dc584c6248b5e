package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowlee-bookings/internal/middleware"
	"github.com/iliyamo/crowlee-bookings/internal/service"
	"github.com/iliyamo/crowlee-bookings/internal/utils"
)

// TokenRevoker denylists a single session token.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
}

// AuthHandler serves registration, login, logout and the session probe.
type AuthHandler struct {
	Auth    *service.AuthService
	Revoker TokenRevoker // optional
	Log     logrus.FieldLogger

	Secret       string
	SecureCookie bool
	Now          func() time.Time
}

func NewAuthHandler(auth *service.AuthService, revoker TokenRevoker, secret string, secure bool, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Auth: auth, Revoker: revoker, Log: log, Secret: secret, SecureCookie: secure, Now: time.Now}
}

// ----- DTOs -----

type registerReq struct {
	Name        string `json:"name" validate:"max=100"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Password    string `json:"password" validate:"max=72"`
	Phone       string `json:"phone" validate:"max=30"`
	Address     string `json:"address" validate:"max=255"`
	InviteToken string `json:"inviteToken" validate:"max=128"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionUser struct {
	UserID uint64 `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// setSessionCookie writes the session cookie.  Max-Age follows the token
// lifetime.
func (h *AuthHandler) setSessionCookie(c echo.Context, s utils.SessionToken) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    s.Token,
		Path:     "/",
		MaxAge:   int(s.ExpiresAt.Sub(s.IssuedAt) / time.Second),
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register creates an account, optionally through an invitation, and signs
// the new user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		Address:     req.Address,
		InviteToken: req.InviteToken,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}

	h.setSessionCookie(c, res.Session)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"user":    toUserJSON(res.User),
	})
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	h.setSessionCookie(c, res.Session)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    toUserJSON(res.User),
		"role":    res.User.Role,
	})
}

// Logout clears the cookie.  A still-valid token is also denylisted so a
// copied cookie stops working.
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.CookieName); err == nil && cookie.Value != "" && h.Revoker != nil {
		if claims, err := utils.ParseSession(h.Secret, cookie.Value, h.Now()); err == nil && claims.ExpiresAt != nil {
			ctx, cancel := requestCtx(c)
			defer cancel()
			if err := h.Revoker.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil && h.Log != nil {
				h.Log.WithError(err).WithField("user_id", claims.UserID).Warn("denylist session on logout")
			}
		}
	}
	h.clearSessionCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// Me reports the identity carried by the session.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"isAuthenticated": true,
		"user":            sessionUser{UserID: claims.UserID, Email: claims.Email, Role: claims.Role},
	})
}
