package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/lifecycle"
	"github.com/spec-kit/template-studio/internal/repository"
	apperrors "github.com/spec-kit/template-studio/pkg/util/errorutil"
)

// AssignmentService handles template assignment operations.
type AssignmentService struct {
	templates  repository.TemplateRepository
	actors     repository.ActorRepository
	history    repository.TemplateHistoryRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TemplateRepo repository.TemplateRepository
	ActorRepo    repository.ActorRepository
	HistoryRepo  repository.TemplateHistoryRepository
	Dispatcher   events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		templates:  deps.TemplateRepo,
		actors:     deps.ActorRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Assign sets the assignee. Admin only; an existing assignee is overwritten
// without an unassign step (admin override).
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.Actor, templateID, assigneeID string) (*domain.Template, error) {
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanAssign(template, actor) {
		return nil, apperrors.NewPermissionDenied("assignment requires admin role")
	}

	assignee, err := s.actors.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("actor", map[string]any{"actor_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleCreator {
		return nil, apperrors.NewValidationError("assignee must hold the creator role", nil)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee deactivated", map[string]any{"actor_id": assigneeID})
	}

	oldAssignee := template.AssignedTo
	template.AssignedTo = &assignee.ID
	if template.Status == domain.TemplateStatusNew {
		template.Status = domain.TemplateStatusAssigned
	}
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAssigneeChange(ctx, actor, template.ID, oldAssignee, template.AssignedTo)
	s.publishAssigned(ctx, actor, template)
	return template, nil
}

// SelfAssign lets a creator claim an unassigned NEW template. This is the
// only mutation a creator performs without already being the assignee.
func (s *AssignmentService) SelfAssign(ctx context.Context, actor *domain.Actor, templateID string) (*domain.Template, error) {
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanSelfAssign(template, actor) {
		return nil, apperrors.NewPermissionDenied("template is not open for self-assignment")
	}

	template.AssignedTo = &actor.ID
	template.Status = domain.TemplateStatusAssigned
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAssigneeChange(ctx, actor, template.ID, nil, template.AssignedTo)
	s.publishAssigned(ctx, actor, template)
	return template, nil
}

// Unassign releases the template back to the unassigned NEW pool. Admins
// always may; the assignee may, except from PUBLISHED or REVIEWED. A
// template holding a public catalog record never returns to NEW; it must
// leave the catalog through the archive flow first.
func (s *AssignmentService) Unassign(ctx context.Context, actor *domain.Actor, templateID string) (*domain.Template, error) {
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanUnassign(template, actor) {
		return nil, apperrors.NewPermissionDenied("template cannot be released by caller in its current state")
	}
	if template.PublicCatalogID != nil {
		return nil, apperrors.NewTransitionDenied("template with a catalog record cannot return to the unassigned pool", map[string]any{
			"template_id":       template.ID,
			"public_catalog_id": *template.PublicCatalogID,
		})
	}

	oldAssignee := template.AssignedTo
	template.AssignedTo = nil
	template.Status = domain.TemplateStatusNew
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAssigneeChange(ctx, actor, template.ID, oldAssignee, nil)
	s.publishAssigned(ctx, actor, template)
	return template, nil
}

func (s *AssignmentService) loadTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("template", map[string]any{"template_id": templateID})
		}
		return nil, apperrors.MapError(err)
	}
	return template, nil
}

func (s *AssignmentService) recordAssigneeChange(ctx context.Context, actor *domain.Actor, templateID string, oldAssignee, newAssignee *string) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	_ = s.history.Create(ctx, &domain.TemplateHistory{
		TemplateID:  templateID,
		ChangedBy:   &actorID,
		ChangedRole: actor.Role,
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue:    map[string]any{"assigned_to": oldAssignee},
		NewValue:    map[string]any{"assigned_to": newAssignee},
	})
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actor *domain.Actor, template *domain.Template) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTemplateAssigned,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.SnapshotTemplate(template),
	})
}
