package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/services"
	"github.com/parkournet/recordsdb/internal/types"
	"github.com/parkournet/recordsdb/internal/utils"
	"gorm.io/gorm"
)

// MapHandler handles map routes
type MapHandler struct {
	DB *gorm.DB
}

// CreateMap handles POST /api/maps
// @Summary Submit a new map
// @Description Register a map with its creator-chosen difficulty tier
// @Tags Maps
// @Accept json
// @Produce json
// @Param body body services.MapCreateInput true "Map submission"
// @Success 201 {object} models.Map
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /maps [post]
func (h *MapHandler) CreateMap(c *fiber.Ctx) error {
	var input services.MapCreateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	m, err := services.CreateMap(h.DB, input)
	if err != nil {
		return serviceError(c, err, "createMap")
	}

	return c.Status(fiber.StatusCreated).JSON(m)
}

// GetMap handles GET /api/maps/:code
// @Summary Get a map
// @Description Fetch a map by its code
// @Tags Maps
// @Produce json
// @Param code path string true "Map code"
// @Success 200 {object} models.Map
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code} [get]
func (h *MapHandler) GetMap(c *fiber.Ctx) error {
	m, err := services.GetMap(h.DB, c.Params("code"))
	if err != nil {
		return serviceError(c, err, "getMap")
	}
	return c.Status(fiber.StatusOK).JSON(m)
}

// SetDifficulty handles PATCH /api/maps/:code/difficulty
// @Summary Set a map's raw difficulty
// @Description Update the raw difficulty and re-derive the tier label
// @Tags Maps
// @Accept json
// @Produce json
// @Param code path string true "Map code"
// @Param body body object true "Raw difficulty"
// @Success 200 {object} models.Map
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/difficulty [patch]
func (h *MapHandler) SetDifficulty(c *fiber.Ctx) error {
	var body struct {
		RawDifficulty *float64 `json:"raw_difficulty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	m, err := services.SetRawDifficulty(h.DB, c.Params("code"), body.RawDifficulty)
	if err != nil {
		return serviceError(c, err, "setDifficulty")
	}
	return c.Status(fiber.StatusOK).JSON(m)
}

// SetLink handles PUT /api/maps/:code/link
// @Summary Link or unlink two maps
// @Description Pair a map with a partner code symmetrically, or clear the pairing with a null target
// @Tags Maps
// @Accept json
// @Produce json
// @Param code path string true "Map code"
// @Param body body object true "Target code, null to clear"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/link [put]
func (h *MapHandler) SetLink(c *fiber.Ctx) error {
	var body struct {
		LinkedCode *string `json:"linked_code"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.SetLinkedCode(h.DB, c.Params("code"), body.LinkedCode); err != nil {
		return serviceError(c, err, "setLink")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// SetVisibility handles PATCH /api/maps/:code/visibility
// @Summary Set map visibility flags
// @Tags Maps
// @Accept json
// @Produce json
// @Param code path string true "Map code"
// @Param body body services.VisibilityInput true "Flags to update"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/visibility [patch]
func (h *MapHandler) SetVisibility(c *fiber.Ctx) error {
	var input services.VisibilityInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.SetVisibility(h.DB, c.Params("code"), input); err != nil {
		return serviceError(c, err, "setVisibility")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// ConvertToLegacy handles POST /api/maps/:code/legacy
// @Summary Convert a map's records to legacy
// @Description Mark all completions legacy, awarding medals to full runs
// @Tags Maps
// @Produce json
// @Param code path string true "Map code"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/legacy [post]
func (h *MapHandler) ConvertToLegacy(c *fiber.Ctx) error {
	converted, err := services.ConvertMapToLegacy(h.DB, c.Params("code"))
	if err != nil {
		return serviceError(c, err, "convertToLegacy")
	}
	return utils.MutationSuccessResponse(c, converted)
}

// DeleteMap handles DELETE /api/maps/:code
// @Summary Delete a map
// @Description Remove a map and all of its completions, ratings, votes and clicks
// @Tags Maps
// @Produce json
// @Param code path string true "Map code"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code} [delete]
func (h *MapHandler) DeleteMap(c *fiber.Ctx) error {
	if err := services.DeleteMap(h.DB, c.Params("code")); err != nil {
		return serviceError(c, err, "deleteMap")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// RateMap handles PUT /api/maps/:code/ratings
// @Summary Rate a map's quality
// @Description Upsert a 1-10 quality rating for (map, user)
// @Tags Maps
// @Accept json
// @Produce json
// @Param code path string true "Map code"
// @Param body body object true "User and quality"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/ratings [put]
func (h *MapHandler) RateMap(c *fiber.Ctx) error {
	var body struct {
		UserID  types.FlexUint64 `json:"user_id"`
		Quality int              `json:"quality"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation.input")
	}

	if err := services.RateMap(h.DB, c.Params("code"), body.UserID.Uint64(), body.Quality); err != nil {
		return serviceError(c, err, "rateMap")
	}
	return utils.MutationSuccessResponse(c, 1)
}

// Leaderboard handles GET /api/maps/:code/leaderboard
// @Summary Get a map's leaderboard
// @Description Verified best run per user, fastest first, with medals
// @Tags Maps
// @Produce json
// @Param code path string true "Map code"
// @Param page_number query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(25)
// @Success 200 {array} services.LeaderboardEntry
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /maps/{code}/leaderboard [get]
func (h *MapHandler) Leaderboard(c *fiber.Ctx) error {
	pageNumber, _ := strconv.Atoi(c.Query("page_number", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "25"))

	entries, err := services.Leaderboard(h.DB, c.Params("code"), pageNumber, pageSize)
	if err != nil {
		return serviceError(c, err, "leaderboard")
	}
	if len(entries) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(entries)
}
