package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/pscode22/payment-app/internal/adapter/storage"
	"github.com/pscode22/payment-app/internal/core/security"
)

// UserIDKey is where Protected parks the authenticated caller's id in Locals.
const UserIDKey = "user_id"

// Protected authenticates the ambient session from a bearer token. Tokens are
// compared by hash only.
func Protected(tokens *storage.TokenRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing session token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Header Format"})
		}

		userID, err := tokens.Lookup(c.Context(), security.HashToken(parts[1]))
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid session token"})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// CallerID extracts the authenticated user id set by Protected.
func CallerID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(UserIDKey).(uuid.UUID)
	return id, ok
}
