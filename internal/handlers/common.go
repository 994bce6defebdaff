package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/parkournet/recordsdb/internal/types"
	"github.com/parkournet/recordsdb/internal/utils"
)

// serviceError translates a service-layer error into the JSON error envelope
// with the HTTP status its type carries.
func serviceError(c *fiber.Ctx, err error, fallbackType string) error {
	var (
		outOfRange *types.OutOfRangeError
		constraint *types.ConstraintViolation
		selfLink   *types.SelfLinkError
		notFound   *types.NotFoundError
		conflict   *types.ConflictError
		ineligible *types.IneligibleVoterError
		duplicate  *types.DuplicateEventError
		validation *types.ValidationError
		custom     *types.CustomError
	)

	switch {
	case errors.As(err, &outOfRange):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnprocessableEntity, "difficulty.range")
	case errors.As(err, &constraint):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "completion.best_time")
	case errors.As(err, &selfLink):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "map.link.self")
	case errors.As(err, &notFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.As(err, &conflict):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "map.link.conflict")
	case errors.As(err, &ineligible):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "playtest.vote.ineligible")
	case errors.As(err, &duplicate):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "telemetry.click.duplicate")
	case errors.As(err, &validation):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "validation.input")
	case errors.As(err, &custom):
		return utils.ErrorResponse(c, custom.Message, custom.Code, custom.Type)
	}

	return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, fallbackType)
}
