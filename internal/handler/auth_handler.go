package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"movie-mood-service/internal/models"
	"movie-mood-service/internal/service"
	"movie-mood-service/internal/validation"
)

// AuthHandler handles admin login.
type AuthHandler struct {
	auth      *service.AuthService
	validator *validation.Validator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, v *validation.Validator) *AuthHandler {
	return &AuthHandler{auth: auth, validator: v}
}

// Login exchanges the admin credentials for a bearer token.
// @Summary Admin login
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req models.LoginRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return badRequest(c, err)
	}

	resp, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		slog.Warn("failed admin login", "username", req.Username, "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid username or password"})
	}
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		return internalError(c, "failed to log in")
	}
	return c.JSON(resp)
}
