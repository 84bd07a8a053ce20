package handlers

import (
	"log"

	"chess-tournament-system/middleware"
	"chess-tournament-system/models"
	"chess-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

type ParticipantHandler struct {
	registry *services.RegistryService
}

func NewParticipantHandler(registry *services.RegistryService) *ParticipantHandler {
	return &ParticipantHandler{registry: registry}
}

func SetupParticipantRoutes(app *fiber.App, h *ParticipantHandler, operatorToken string) {
	app.Get("/participants", h.ListParticipants)
	app.Post("/participants", middleware.OperatorAuthMiddleware(operatorToken), h.AddParticipant)
}

// ListParticipants returns the registry alphabetically; ?q= filters by name
// or national id, ignoring case and accents.
func (h *ParticipantHandler) ListParticipants(c *fiber.Ctx) error {
	participants, err := h.registry.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(participants)
}

type addParticipantRequest struct {
	NationalID string      `json:"national_id"`
	FirstName  string      `json:"firstname"`
	LastName   string      `json:"lastname"`
	BirthDate  models.Date `json:"birthdate"`
}

func (h *ParticipantHandler) AddParticipant(c *fiber.Ctx) error {
	var req addParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body (birthdate uses DD-MM-YYYY)")
	}
	p, err := h.registry.Add(c.UserContext(), &models.Participant{
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		BirthDate:  req.BirthDate,
	})
	if err != nil {
		return respondError(c, err)
	}
	log.Printf("[REGISTRY] %s added %s", middleware.Operator(c), p.NationalID)
	return c.Status(fiber.StatusCreated).JSON(p)
}
