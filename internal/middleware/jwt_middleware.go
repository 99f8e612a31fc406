package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"comptes/internal/services"
)

// AuthRequired is a Fiber middleware to check for a valid, non-revoked
// session token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		tokenString := parts[1]

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		// Store claims and the raw token in the Fiber context for subsequent
		// handlers; logout needs the raw string to revoke it.
		c.Locals("id", claims["id"])
		c.Locals("username", claims["username"])
		c.Locals("token", tokenString)

		return c.Next()
	}
}
