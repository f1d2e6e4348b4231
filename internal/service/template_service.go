package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/lifecycle"
	"github.com/spec-kit/template-studio/internal/repository"
	apperrors "github.com/spec-kit/template-studio/pkg/util/errorutil"
)

// TemplateService coordinates template workflows: creation, listing, the
// status state machine, artifact registration and deletion.
type TemplateService struct {
	templates   repository.TemplateRepository
	artifacts   repository.ArtifactRepository
	departments repository.DepartmentRepository
	history     repository.TemplateHistoryRepository
	ledger      *LedgerService
	syncer      *SyncService
	dispatcher  events.Dispatcher
}

// TemplateDependencies bundles collaborators for the template service.
type TemplateDependencies struct {
	TemplateRepo   repository.TemplateRepository
	ArtifactRepo   repository.ArtifactRepository
	DepartmentRepo repository.DepartmentRepository
	HistoryRepo    repository.TemplateHistoryRepository
	Ledger         *LedgerService
	Syncer         *SyncService
	Dispatcher     events.Dispatcher
}

// TemplateCreateInput describes template creation payload.
type TemplateCreateInput struct {
	Title         string
	Description   string
	DepartmentIDs []string
	PriceCents    int64
}

// TemplateListFilter describes listing filters.
type TemplateListFilter struct {
	Statuses []domain.TemplateStatus
	Limit    int
	Offset   int
}

// ArtifactInput defines uploaded flow artifact metadata.
type ArtifactInput struct {
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
}

// NewTemplateService constructs the service.
func NewTemplateService(deps TemplateDependencies) *TemplateService {
	return &TemplateService{
		templates:   deps.TemplateRepo,
		artifacts:   deps.ArtifactRepo,
		departments: deps.DepartmentRepo,
		history:     deps.HistoryRepo,
		ledger:      deps.Ledger,
		syncer:      deps.Syncer,
		dispatcher:  deps.Dispatcher,
	}
}

// CreateTemplate creates a NEW template owned by the calling actor.
func (s *TemplateService) CreateTemplate(ctx context.Context, actor *domain.Actor, input TemplateCreateInput) (*domain.Template, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if input.PriceCents < 0 {
		return nil, apperrors.NewValidationError("price must not be negative", nil)
	}
	for _, deptID := range input.DepartmentIDs {
		dept, err := s.departments.GetByID(ctx, deptID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("unknown department", map[string]any{"department_id": deptID})
			}
			return nil, apperrors.MapError(err)
		}
		if !dept.IsActive {
			return nil, apperrors.NewValidationError("department inactive", map[string]any{"department_id": deptID})
		}
	}

	template := &domain.Template{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TemplateStatusNew,
		CreatedBy:     actor.ID,
		DepartmentIDs: input.DepartmentIDs,
		PriceCents:    input.PriceCents,
		SyncState:     domain.SyncStateNeverPublished,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventTemplateCreated,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.SnapshotTemplate(template),
	})
	return template, nil
}

// ListTemplates returns templates visible to the actor. Creators see
// unassigned templates and those assigned to them.
func (s *TemplateService) ListTemplates(ctx context.Context, actor *domain.Actor, filter TemplateListFilter) ([]domain.Template, error) {
	repoFilter := repository.TemplateFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	if actor.Role == domain.RoleCreator {
		repoFilter.VisibleToCreator = &actor.ID
	}
	templates, err := s.templates.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return templates, nil
}

// GetTemplate fetches a template ensuring the actor may see it.
func (s *TemplateService) GetTemplate(ctx context.Context, actor *domain.Actor, templateID string) (*domain.Template, error) {
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !visibleToActor(template, actor) {
		return nil, apperrors.NewPermissionDenied("template assigned to another creator")
	}
	return template, nil
}

// AllowedTransitions exposes the legal next statuses for the actor, so the
// caller can render only the moves that will be accepted.
func (s *TemplateService) AllowedTransitions(ctx context.Context, actor *domain.Actor, templateID string) ([]domain.TemplateStatus, error) {
	template, err := s.GetTemplate(ctx, actor, templateID)
	if err != nil {
		return nil, err
	}
	return lifecycle.AllowedTransitions(template, actor), nil
}

// UpdateStatus runs the state machine for one requested transition. On
// acceptance the change is committed, audited and published; transitions
// into the billable state accrue a pending ledger item, and transitions
// touching the public catalog trigger the external call afterwards.
func (s *TemplateService) UpdateStatus(ctx context.Context, actor *domain.Actor, templateID string, target domain.TemplateStatus) (*domain.Template, error) {
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleCreator {
		if template.AssignedTo == nil || *template.AssignedTo != actor.ID {
			return nil, apperrors.NewPermissionDenied("template not assigned to caller")
		}
	}

	decision := lifecycle.RequestTransition(template, actor, target)
	if !decision.Allowed() {
		switch decision.Reason {
		case lifecycle.DenyMissingArtifact:
			return nil, apperrors.NewMissingArtifact(map[string]any{"template_id": template.ID})
		case lifecycle.DenyUnassigned:
			return nil, apperrors.NewTransitionDenied("cannot mark assigned without an assignee",
				map[string]any{"template_id": template.ID})
		default:
			return nil, apperrors.NewTransitionDenied("status change not allowed", map[string]any{
				"template_id": template.ID,
				"from":        template.Status,
				"to":          target,
			})
		}
	}

	if target == domain.TemplateStatusPublished && len(template.DepartmentIDs) == 0 {
		return nil, apperrors.NewValidationError("published template requires at least one department", nil)
	}

	oldStatus := template.Status
	billablePayee := template.AssignedTo
	template.Status = target
	if decision.IncrementFixCount {
		template.FixCount++
	}
	if decision.ClearAssignee {
		template.AssignedTo = nil
	}
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordStatusChange(ctx, actor, template.ID, oldStatus, target)

	if decision.Billable && s.ledger != nil && billablePayee != nil {
		if err := s.ledger.OnTransitionToBillable(ctx, template, *billablePayee); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:       events.EventTemplateUpdated,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.SnapshotTemplate(template),
	})

	if decision.RequiresSync && s.syncer != nil {
		// Local commit and the catalog call are deliberately not atomic.
		// A failure leaves the template drifted; the caller re-syncs manually.
		if err := s.syncer.SyncAfterTransition(ctx, actor, template); err != nil {
			return template, err
		}
	}
	return template, nil
}

// RegisterArtifact records uploaded flow definition metadata. Only the
// assignee or an admin may attach artifacts.
func (s *TemplateService) RegisterArtifact(ctx context.Context, actor *domain.Actor, templateID string, input ArtifactInput) (*domain.FlowArtifact, error) {
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		if template.AssignedTo == nil || *template.AssignedTo != actor.ID {
			return nil, apperrors.NewPermissionDenied("template not assigned to caller")
		}
	}
	if strings.TrimSpace(input.StorageKey) == "" {
		return nil, apperrors.NewValidationError("storage_key required", nil)
	}

	artifact := &domain.FlowArtifact{
		TemplateID: template.ID,
		StorageKey: input.StorageKey,
		FileName:   input.FileName,
		MimeType:   input.MimeType,
		SizeBytes:  input.SizeBytes,
		UploadedBy: actor.ID,
	}
	if err := s.artifacts.Create(ctx, artifact); err != nil {
		return nil, apperrors.MapError(err)
	}

	template.ArtifactPresent = true
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTemplateUpdated,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.SnapshotTemplate(template),
	})
	return artifact, nil
}

// DeleteTemplate removes the aggregate. Admin only; blockers, suggestions and
// artifacts cascade in storage.
func (s *TemplateService) DeleteTemplate(ctx context.Context, actor *domain.Actor, templateID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewPermissionDenied("admin role required")
	}
	template, err := s.loadTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, template.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTemplateDeleted,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.TemplateDeletedPayload{ID: template.ID},
	})
	return nil
}

// ListHistory returns the audit trail for a template.
func (s *TemplateService) ListHistory(ctx context.Context, actor *domain.Actor, templateID string) ([]domain.TemplateHistory, error) {
	if _, err := s.GetTemplate(ctx, actor, templateID); err != nil {
		return nil, err
	}
	history, err := s.history.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *TemplateService) loadTemplate(ctx context.Context, templateID string) (*domain.Template, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("template", map[string]any{"template_id": templateID})
		}
		return nil, apperrors.MapError(err)
	}
	return template, nil
}

func (s *TemplateService) recordStatusChange(ctx context.Context, actor *domain.Actor, templateID string, oldStatus, newStatus domain.TemplateStatus) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	_ = s.history.Create(ctx, &domain.TemplateHistory{
		TemplateID:  templateID,
		ChangedBy:   &actorID,
		ChangedRole: actor.Role,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    map[string]any{"status": newStatus},
	})
}

func (s *TemplateService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func visibleToActor(template *domain.Template, actor *domain.Actor) bool {
	if actor.Role != domain.RoleCreator {
		return true
	}
	if template.AssignedTo == nil {
		return true
	}
	return *template.AssignedTo == actor.ID
}

func actorRef(actor *domain.Actor) events.Actor {
	return events.Actor{ID: actor.ID, Role: actor.Role}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
