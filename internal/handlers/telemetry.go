package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/services"
	"github.com/parkournet/recordsdb/internal/utils"
	"gorm.io/gorm"
)

// TelemetryHandler handles map view telemetry routes
type TelemetryHandler struct {
	DB *gorm.DB
}

// RecordClick handles POST /api/maps/:code/clicks
// @Summary Record a map view
// @Description Count one click per source per UTC day; repeats are rejected
// @Tags Telemetry
// @Accept json
// @Produce json
// @Param code path string true "Map code"
// @Param body body object true "Source hash"
// @Success 201 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/clicks [post]
func (h *TelemetryHandler) RecordClick(c *fiber.Ctx) error {
	var body struct {
		SourceHash string `json:"source_hash"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.RecordClick(h.DB, c.Params("code"), body.SourceHash, time.Now()); err != nil {
		return serviceError(c, err, "recordClick")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Success",
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ClickCount handles GET /api/maps/:code/clicks
// @Summary Get a map's view count
// @Tags Telemetry
// @Produce json
// @Param code path string true "Map code"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/clicks [get]
func (h *TelemetryHandler) ClickCount(c *fiber.Ctx) error {
	count, err := services.ClickCount(h.DB, c.Params("code"))
	if err != nil {
		return serviceError(c, err, "clickCount")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"code":   c.Params("code"),
		"clicks": count,
	})
}
