package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/template-studio/internal/api/dto"
	"github.com/spec-kit/template-studio/internal/auth"
	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/service"
)

// BlockersHandler exposes blocker and discussion endpoints.
type BlockersHandler struct {
	blockers *service.BlockerService
}

// NewBlockersHandler constructs handler.
func NewBlockersHandler(blockers *service.BlockerService) *BlockersHandler {
	return &BlockersHandler{blockers: blockers}
}

// Create handles POST /templates/:id/blockers.
func (h *BlockersHandler) Create(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.BlockerCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	blocker, err := h.blockers.CreateBlocker(c.UserContext(), actor, c.Params("id"), service.BlockerCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.BlockerPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewBlockerResponse(blocker)})
}

// List handles GET /templates/:id/blockers.
func (h *BlockersHandler) List(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	blockers, err := h.blockers.ListBlockers(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.BlockerResponse, 0, len(blockers))
	for i := range blockers {
		out = append(out, dto.NewBlockerResponse(&blockers[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Update handles PATCH /blockers/:id.
func (h *BlockersHandler) Update(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.BlockerUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	input := service.BlockerUpdateInput{ResolutionNotes: req.ResolutionNotes}
	if req.Status != nil {
		status := domain.BlockerStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.BlockerPriority(*req.Priority)
		input.Priority = &priority
	}

	blocker, err := h.blockers.UpdateBlocker(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBlockerResponse(blocker)})
}

// Delete handles DELETE /blockers/:id.
func (h *BlockersHandler) Delete(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	if err := h.blockers.DeleteBlocker(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddDiscussion handles POST /blockers/:id/discussion.
func (h *BlockersHandler) AddDiscussion(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.DiscussionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	message, err := h.blockers.AddDiscussion(c.UserContext(), actor, c.Params("id"), req.Body, req.IsSolution)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDiscussionResponse(message)})
}

// ListDiscussion handles GET /blockers/:id/discussion.
func (h *BlockersHandler) ListDiscussion(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	messages, err := h.blockers.ListDiscussion(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.DiscussionResponse, 0, len(messages))
	for i := range messages {
		out = append(out, dto.NewDiscussionResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}
