package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/template-studio/internal/api/dto"
	"github.com/spec-kit/template-studio/internal/auth"
	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/service"
)

// TemplatesHandler exposes template lifecycle endpoints.
type TemplatesHandler struct {
	templates   *service.TemplateService
	assignments *service.AssignmentService
	syncer      *service.SyncService
}

// NewTemplatesHandler constructs handler.
func NewTemplatesHandler(templates *service.TemplateService, assignments *service.AssignmentService, syncer *service.SyncService) *TemplatesHandler {
	return &TemplatesHandler{templates: templates, assignments: assignments, syncer: syncer}
}

// Create handles POST /templates.
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.TemplateCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	template, err := h.templates.CreateTemplate(c.UserContext(), actor, service.TemplateCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		DepartmentIDs: req.DepartmentIDs,
		PriceCents:    req.PriceCents,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// List handles GET /templates.
func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)

	filter := service.TemplateListFilter{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.TemplateStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	templates, err := h.templates.ListTemplates(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateListResponse(templates)})
}

// Get handles GET /templates/:id.
func (h *TemplatesHandler) Get(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	template, err := h.templates.GetTemplate(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// Transitions handles GET /templates/:id/transitions.
func (h *TemplatesHandler) Transitions(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	statuses, err := h.templates.AllowedTransitions(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	if statuses == nil {
		statuses = []domain.TemplateStatus{}
	}
	return c.JSON(fiber.Map{"data": statuses})
}

// UpdateStatus handles PATCH /templates/:id/status.
func (h *TemplatesHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.TemplateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	target := domain.TemplateStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if target == "" {
		return fiber.NewError(http.StatusBadRequest, "status required")
	}

	// On a catalog failure the transition has already committed locally;
	// the error response carries the EXTERNAL_SYNC_FAILED code and the
	// client refetches to observe the DRIFTED state.
	template, err := h.templates.UpdateStatus(c.UserContext(), actor, c.Params("id"), target)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// Assign handles POST /templates/:id/assign.
func (h *TemplatesHandler) Assign(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.TemplateAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.AssigneeID == "" {
		return fiber.NewError(http.StatusBadRequest, "assignee_id required")
	}

	template, err := h.assignments.Assign(c.UserContext(), actor, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// SelfAssign handles POST /templates/:id/claim.
func (h *TemplatesHandler) SelfAssign(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	template, err := h.assignments.SelfAssign(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// Unassign handles POST /templates/:id/unassign.
func (h *TemplatesHandler) Unassign(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	template, err := h.assignments.Unassign(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

// RegisterArtifact handles POST /templates/:id/artifacts.
func (h *TemplatesHandler) RegisterArtifact(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	var req dto.ArtifactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	artifact, err := h.templates.RegisterArtifact(c.UserContext(), actor, c.Params("id"), service.ArtifactInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":          artifact.ID,
		"template_id": artifact.TemplateID,
		"storage_key": artifact.StorageKey,
		"file_name":   artifact.FileName,
	}})
}

// Delete handles DELETE /templates/:id.
func (h *TemplatesHandler) Delete(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	if err := h.templates.DeleteTemplate(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// History handles GET /templates/:id/history.
func (h *TemplatesHandler) History(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	entries, err := h.templates.ListHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.NewHistoryResponse(entry))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Resync handles POST /templates/:id/resync.
func (h *TemplatesHandler) Resync(c *fiber.Ctx) error {
	actor, _ := auth.ActorFromContext(c)
	template, err := h.templates.GetTemplate(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	template, err = h.syncer.Resync(c.UserContext(), actor, template)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTemplateResponse(template)})
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
