package handlers

import (
	"errors"
	"log"
	"net/url"

	"chess-tournament-system/models"
	"chess-tournament-system/services"
	"chess-tournament-system/storage"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a 500.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, services.ErrRoundNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidOutcome),
		errors.Is(err, services.ErrInvalidTournament),
		errors.Is(err, services.ErrInvalidParticipant):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrMatchFinished),
		errors.Is(err, services.ErrTournamentClosed),
		errors.Is(err, services.ErrDuplicateParticipant):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("❌ %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func conflict(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// nameParam returns the decoded :name route param.
func nameParam(c *fiber.Ctx) string {
	raw := c.Params("name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}
