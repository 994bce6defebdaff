package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const currentAPIVersion = "1.0.0"

// VersionMiddleware normalizes the X-Api-Version header into the request
// context. Short forms ("1", "1.0") are padded to the full semver string so
// handlers compare against a single canonical value, and the normalized
// version is echoed back on the response.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", currentAPIVersion)

		for strings.Count(version, ".") < 2 {
			version += ".0"
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}
