package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// StreamAuthMiddleware guards server-sent event routes. Browsers' EventSource
// cannot set headers, so the token also travels as the `token` query param.
//
// Usage:
//
//	app.Get("/tournaments/:name/stream", middleware.StreamAuthMiddleware(token), h.Stream)
func StreamAuthMiddleware(expectedToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Next()
		}

		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			token = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}
		if !tokensEqual(token, expectedToken) {
			log.Printf("[STREAM_AUTH] ❌ Invalid token for %s from %s", c.Path(), c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
