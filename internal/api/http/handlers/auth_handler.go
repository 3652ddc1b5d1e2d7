package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// AuthHandler exposes login, logout and current-user endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	guard        *auth.AuthMiddleware
	secureCookie bool
}

// NewAuthHandler constructs handler. secureCookie should be true in production only.
func NewAuthHandler(authService *service.AuthService, guard *auth.AuthMiddleware, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, guard: guard, secureCookie: secureCookie}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(h.sessionCookie(result.AccessToken, int(result.ExpiresAt.Sub(result.IssuedAt).Seconds())))
	return c.JSON(dto.LoginResponse{AccessToken: result.AccessToken})
}

// Logout handles POST /api/auth/logout. It always succeeds and clears the cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(auth.CookieName); token != "" && h.guard != nil {
		if identity, err := h.guard.Authenticate(token); err == nil {
			h.authService.Logout(c.UserContext(), identity)
		}
	}

	cookie := h.sessionCookie("", 0)
	cookie.Expires = time.Unix(0, 0)
	c.Cookie(cookie)
	return c.JSON(dto.LogoutResponse{Success: true, Message: dto.LogoutMessage})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return auth.ErrNotAuthenticated
	}
	return c.JSON(dto.MeResponse{User: dto.UserFromIdentity(identity)})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return auth.ErrNotAuthenticated
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	if err := h.authService.ChangePassword(c.UserContext(), identity, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewValidationError("current password is incorrect", map[string]any{"currentPassword": "is incorrect"})
		}
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     auth.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
