// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the user identity, roles and school set by
// the Gateway and attaches them to the request context. Routes mounted behind
// it always have a user.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID: request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}
		role := ""
		if len(roles) > 0 {
			role = roles[0]
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)
		c.Locals("user_role", role)
		c.Locals("school_id", c.Get("X-School-ID"))

		return c.Next()
	}
}

// RequireRole guards admin routes on one of the gateway-provided roles.
func RequireRole(required string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, r := range roles {
			if r == required {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient role",
		})
	}
}
