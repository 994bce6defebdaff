package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/config"
	"github.com/parkournet/recordsdb/internal/services"
	"gorm.io/gorm"
)

// HealthHandler handles the liveness route
type HealthHandler struct {
	Config *config.Config
	DB     *gorm.DB
}

// Health handles GET /health
// @Summary Service health
// @Description Report database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Config, h.DB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
