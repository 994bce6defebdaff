package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/services"
	"github.com/parkournet/recordsdb/internal/utils"
	"gorm.io/gorm"
)

// CompletionHandler handles completion routes
type CompletionHandler struct {
	DB *gorm.DB
}

// RecordCompletion handles POST /api/completions
// @Summary Submit a run
// @Description Record a completion, enforcing the monotonic best-time rule
// @Tags Completions
// @Accept json
// @Produce json
// @Param body body services.CompletionInput true "Run submission"
// @Success 201 {object} models.Completion
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /completions [post]
func (h *CompletionHandler) RecordCompletion(c *fiber.Ctx) error {
	var input services.CompletionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	completion, err := services.RecordCompletion(h.DB, input)
	if err != nil {
		return serviceError(c, err, "recordCompletion")
	}
	return c.Status(fiber.StatusCreated).JSON(completion)
}

// VerifyCompletion handles PATCH /api/completions/:id/verify
// @Summary Verify a run
// @Description Mark a completion verified; the submitter's pending map rating is verified with it
// @Tags Completions
// @Accept json
// @Produce json
// @Param id path int true "Completion ID"
// @Param body body services.VerificationInput true "Verifier"
// @Success 200 {object} models.Completion
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /completions/{id}/verify [patch]
func (h *CompletionHandler) VerifyCompletion(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid completion id", fiber.StatusBadRequest, "validation.input")
	}

	var input services.VerificationInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	completion, err := services.VerifyCompletion(h.DB, id, input)
	if err != nil {
		return serviceError(c, err, "verifyCompletion")
	}
	return c.Status(fiber.StatusOK).JSON(completion)
}

// PendingVerifications handles GET /api/completions/pending
// @Summary List runs awaiting verification
// @Tags Completions
// @Produce json
// @Success 200 {array} services.PendingVerification
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /completions/pending [get]
func (h *CompletionHandler) PendingVerifications(c *fiber.Ctx) error {
	pending, err := services.PendingVerifications(h.DB)
	if err != nil {
		return serviceError(c, err, "pendingVerifications")
	}
	if len(pending) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(pending)
}
