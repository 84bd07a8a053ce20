package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// OperatorLocalsKey holds the operator name attached by OperatorAuthMiddleware.
const OperatorLocalsKey = "operator"

// OperatorAuthMiddleware validates the Bearer token on mutating routes. An
// empty expected token disables the check, for local single-operator use.
// The optional X-Operator header names who made the change in the logs.
func OperatorAuthMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Println("⚠️  [OPERATOR_AUTH] OPERATOR_TOKEN not set, mutating routes are open")
	}

	return func(c *fiber.Ctx) error {
		operator := strings.TrimSpace(c.Get("X-Operator"))
		if operator == "" {
			operator = "operator"
		}
		c.Locals(OperatorLocalsKey, operator)

		if expectedToken == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			log.Printf("🚫 [OPERATOR_AUTH] Missing Authorization header for %s %s", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "operator token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if !tokensEqual(token, expectedToken) {
			log.Printf("❌ [OPERATOR_AUTH] Invalid token for %s %s", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid operator token",
			})
		}
		return c.Next()
	}
}

// Operator returns the operator name attached to the request, if any.
func Operator(c *fiber.Ctx) string {
	if name, ok := c.Locals(OperatorLocalsKey).(string); ok && name != "" {
		return name
	}
	return "operator"
}

func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
