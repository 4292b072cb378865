package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// NewCORS returns a middleware that applies CORS headers for the configured
// origins. An entry of "*" allows any origin.
func NewCORS(allowedOrigins []string) fiber.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
			continue
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(c fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin != "" {
			if allowAll {
				c.Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				c.Set("Access-Control-Allow-Origin", origin)
				c.Set("Vary", "Origin")
			}
			c.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-Origin-ID")
			c.Set("Access-Control-Max-Age", "86400")
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}
