package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/services"
	"github.com/parkournet/recordsdb/internal/utils"
	"gorm.io/gorm"
)

// PlaytestHandler handles playtest routes
type PlaytestHandler struct {
	DB *gorm.DB
}

func parsePlaytestIDs(c *fiber.Ctx, withUser bool) (threadID, userID uint64, err error) {
	threadID, err = strconv.ParseUint(c.Params("thread_id"), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if withUser {
		userID, err = strconv.ParseUint(c.Params("user_id"), 10, 64)
		if err != nil {
			return 0, 0, err
		}
	}
	return threadID, userID, nil
}

// CreatePlaytest handles POST /api/playtests
// @Summary Open a playtest
// @Description Associate a playtest thread with a map under test
// @Tags Playtests
// @Accept json
// @Produce json
// @Param body body services.PlaytestCreateInput true "Playtest metadata"
// @Success 201 {object} models.Playtest
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /playtests [post]
func (h *PlaytestHandler) CreatePlaytest(c *fiber.Ctx) error {
	var input services.PlaytestCreateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	meta, err := services.CreatePlaytest(h.DB, input)
	if err != nil {
		return serviceError(c, err, "createPlaytest")
	}
	return c.Status(fiber.StatusCreated).JSON(meta)
}

// CastVote handles PUT /api/playtests/:thread_id/votes/:user_id
// @Summary Cast a difficulty vote
// @Description Record or update a vote; the voter must hold a verified, non-legacy completion
// @Tags Playtests
// @Accept json
// @Produce json
// @Param thread_id path int true "Playtest thread ID"
// @Param user_id path int true "Voter user ID"
// @Param body body object true "Difficulty value"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Router /playtests/{thread_id}/votes/{user_id} [put]
func (h *PlaytestHandler) CastVote(c *fiber.Ctx) error {
	threadID, userID, err := parsePlaytestIDs(c, true)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid id", fiber.StatusBadRequest, "validation.input")
	}

	var body struct {
		Difficulty float64 `json:"difficulty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.CastVote(h.DB, threadID, userID, body.Difficulty); err != nil {
		return serviceError(c, err, "castVote")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// RemoveVote handles DELETE /api/playtests/:thread_id/votes/:user_id
// @Summary Remove a user's vote
// @Tags Playtests
// @Produce json
// @Param thread_id path int true "Playtest thread ID"
// @Param user_id path int true "Voter user ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /playtests/{thread_id}/votes/{user_id} [delete]
func (h *PlaytestHandler) RemoveVote(c *fiber.Ctx) error {
	threadID, userID, err := parsePlaytestIDs(c, true)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid id", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.RemoveVote(h.DB, threadID, userID); err != nil {
		return serviceError(c, err, "removeVote")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// ResetVotes handles DELETE /api/playtests/:thread_id/votes
// @Summary Wipe all votes for a playtest
// @Tags Playtests
// @Produce json
// @Param thread_id path int true "Playtest thread ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /playtests/{thread_id}/votes [delete]
func (h *PlaytestHandler) ResetVotes(c *fiber.Ctx) error {
	threadID, _, err := parsePlaytestIDs(c, false)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid id", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.ResetVotes(h.DB, threadID); err != nil {
		return serviceError(c, err, "resetVotes")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Votes handles GET /api/playtests/:thread_id/votes
// @Summary List votes with their average
// @Tags Playtests
// @Produce json
// @Param thread_id path int true "Playtest thread ID"
// @Success 200 {object} services.VoteSummary
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /playtests/{thread_id}/votes [get]
func (h *PlaytestHandler) Votes(c *fiber.Ctx) error {
	threadID, _, err := parsePlaytestIDs(c, false)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid id", fiber.StatusBadRequest, "validation.input")
	}

	summary, err := services.Votes(h.DB, threadID)
	if err != nil {
		return serviceError(c, err, "votes")
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

// Approve handles POST /api/playtests/:thread_id/approve
// @Summary Approve a playtest
// @Description Finalize the playtest; the vote average becomes the map's difficulty
// @Tags Playtests
// @Produce json
// @Param thread_id path int true "Playtest thread ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /playtests/{thread_id}/approve [post]
func (h *PlaytestHandler) Approve(c *fiber.Ctx) error {
	threadID, _, err := parsePlaytestIDs(c, false)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid id", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.ApprovePlaytest(h.DB, threadID); err != nil {
		return serviceError(c, err, "approvePlaytest")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Reject handles POST /api/playtests/:thread_id/reject
// @Summary Reject a playtest
// @Tags Playtests
// @Produce json
// @Param thread_id path int true "Playtest thread ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /playtests/{thread_id}/reject [post]
func (h *PlaytestHandler) Reject(c *fiber.Ctx) error {
	threadID, _, err := parsePlaytestIDs(c, false)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid id", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.RejectPlaytest(h.DB, threadID); err != nil {
		return serviceError(c, err, "rejectPlaytest")
	}
	return utils.MutationSuccessResponse(c, 1)
}
