package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/template-studio/internal/api/dto"
	"github.com/spec-kit/template-studio/internal/auth"
	"github.com/spec-kit/template-studio/internal/service"
)

// SuggestionsHandler exposes suggestion endpoints.
type SuggestionsHandler struct {
	suggestions *service.SuggestionService
}

// NewSuggestionsHandler constructs handler.
func NewSuggestionsHandler(suggestions *service.SuggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{suggestions: suggestions}
}

// Create handles POST /templates/:id/suggestions.
func (h *SuggestionsHandler) Create(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	suggestion, err := h.suggestions.CreateSuggestion(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSuggestionResponse(suggestion)})
}

// List handles GET /templates/:id/suggestions.
func (h *SuggestionsHandler) List(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	suggestions, err := h.suggestions.ListSuggestions(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.SuggestionResponse, 0, len(suggestions))
	for i := range suggestions {
		out = append(out, dto.NewSuggestionResponse(&suggestions[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Update handles PATCH /suggestions/:id.
func (h *SuggestionsHandler) Update(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.SuggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	suggestion, err := h.suggestions.UpdateSuggestion(c.UserContext(), actor, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSuggestionResponse(suggestion)})
}

// Delete handles DELETE /suggestions/:id.
func (h *SuggestionsHandler) Delete(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	if err := h.suggestions.DeleteSuggestion(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
