package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"wingyshop/internal/models"
	"wingyshop/internal/services"
	"wingyshop/pkg/logger"
)

const (
	localUserID   = "user_id"
	localUsername = "username"
)

// AuthRequired checks the bearer token and stores the caller's identity in the context.
// A missing token is answered with 401, an invalid or expired one with 403.
func AuthRequired(authService *services.AuthService, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Access token required",
			})
		}

		identity, err := authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil || !strings.EqualFold(parts[0], "Bearer") {
			log.Debug("token rejected", map[string]interface{}{"path": c.Path(), "error": err})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Invalid token",
			})
		}

		c.Locals(localUserID, identity.UserID)
		c.Locals(localUsername, identity.Username)
		return c.Next()
	}
}

// AdminRequired rejects callers without the admin flag. It must run after AuthRequired.
func AdminRequired(authService *services.AuthService, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := authService.RequireAdmin(UserID(c))
		if errors.Is(err, models.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Admin access required",
			})
		}
		if err != nil {
			log.Error("admin check failed", map[string]interface{}{"error": err})
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Server error",
			})
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or 0 outside AuthRequired.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

// Username returns the authenticated username.
func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(localUsername).(string)
	return name
}
