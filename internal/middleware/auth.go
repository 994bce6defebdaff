package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/types"
)

// APIKeyAuth validates the X-API-KEY header against the configured secret
func APIKeyAuth(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-API-KEY")
		if provided == "" {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: "API key header \"X-API-KEY\" not found",
				Type:    "authorization.apikey",
			}
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: "Invalid API key",
				Type:    "authorization.apikey",
			}
		}

		return c.Next()
	}
}
