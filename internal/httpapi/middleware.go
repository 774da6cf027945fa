package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/luvhive/backend/internal/server/auth"
)

const localsUserIDKey = "userID"

// jwtMiddleware validates the bearer token and stores the account id in the
// request locals for downstream handlers.
func jwtMiddleware(secretKey []byte) fiber.Handler {
	return func(c fiber.Ctx) error {
		var token string

		authHeader := c.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = parts[1]
			}
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization",
			})
		}

		userID, err := auth.GetUserIDFromToken(token, secretKey)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		c.Locals(localsUserIDKey, userID)

		return c.Next()
	}
}

// userIDFromCtx extracts the authenticated account id set by jwtMiddleware.
func userIDFromCtx(c fiber.Ctx) string {
	id, _ := c.Locals(localsUserIDKey).(string)
	return id
}
