package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"movie-mood-service/internal/models"
	"movie-mood-service/internal/service"
)

const userLocalsKey = "auth_user"

// AdminAuth requires a valid admin bearer token issued by POST /auth/login.
func AdminAuth(auth *service.AuthService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid Authorization header format, expected 'Bearer <token>'",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "empty bearer token",
			})
		}

		user, err := auth.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// UserFromCtx returns the admin set by AdminAuth.
func UserFromCtx(c fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals(userLocalsKey).(models.User)
	return user, ok
}
