package api

import (
	"errors"
	"log"

	"github.com/davrius/taskwell/internal/services"
	"github.com/gofiber/fiber/v2"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// respondServiceError maps the shared error taxonomy onto HTTP statuses.
// Store I/O failures surface as 500 without leaking internals.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return apiError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEmailMismatch):
		return apiError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return apiError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return apiError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		return apiError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAlreadyMember), errors.Is(err, services.ErrConflict):
		return apiError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidOperation), errors.Is(err, services.ErrInvalidInput):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	default:
		log.Printf("api: %s %s failed: %v", c.Method(), c.Path(), err)
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	value, err := c.ParamsInt(name)
	if err != nil || value <= 0 {
		return 0, errors.New("invalid id")
	}
	return uint(value), nil
}
