package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/repository"
	apperrors "github.com/spec-kit/template-studio/pkg/util/errorutil"
)

// BlockerService manages blockers and their discussion threads.
type BlockerService struct {
	blockers   repository.BlockerRepository
	discussion repository.DiscussionRepository
	templates  repository.TemplateRepository
	dispatcher events.Dispatcher
}

// BlockerDependencies bundles collaborators.
type BlockerDependencies struct {
	BlockerRepo    repository.BlockerRepository
	DiscussionRepo repository.DiscussionRepository
	TemplateRepo   repository.TemplateRepository
	Dispatcher     events.Dispatcher
}

// BlockerCreateInput describes blocker creation payload.
type BlockerCreateInput struct {
	Title       string
	Description string
	Priority    domain.BlockerPriority
}

// BlockerUpdateInput describes mutable blocker fields. Nil fields keep the
// current value; ResolutionNotes only applies on the resolved transition.
type BlockerUpdateInput struct {
	Status          *domain.BlockerStatus
	Priority        *domain.BlockerPriority
	ResolutionNotes *string
}

// NewBlockerService constructs the service.
func NewBlockerService(deps BlockerDependencies) *BlockerService {
	return &BlockerService{
		blockers:   deps.BlockerRepo,
		discussion: deps.DiscussionRepo,
		templates:  deps.TemplateRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateBlocker opens a blocker on a template the actor can see.
func (s *BlockerService) CreateBlocker(ctx context.Context, actor *domain.Actor, templateID string, input BlockerCreateInput) (*domain.Blocker, error) {
	template, err := s.visibleTemplate(ctx, actor, templateID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	blocker := &domain.Blocker{
		TemplateID:  template.ID,
		CreatedBy:   actor.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.BlockerStatusOpen,
		Priority:    input.Priority,
	}
	if blocker.Priority == "" {
		blocker.Priority = domain.BlockerPriorityMedium
	}
	if err := s.blockers.Create(ctx, blocker); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventBlockerCreated,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    blockerPayload(blocker),
	})
	return blocker, nil
}

// UpdateBlocker changes status and/or priority. Resolution notes may
// accompany the resolved transition.
func (s *BlockerService) UpdateBlocker(ctx context.Context, actor *domain.Actor, blockerID string, input BlockerUpdateInput) (*domain.Blocker, error) {
	blocker, err := s.loadBlocker(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleTemplate(ctx, actor, blocker.TemplateID); err != nil {
		return nil, err
	}

	if input.Status != nil {
		switch *input.Status {
		case domain.BlockerStatusOpen, domain.BlockerStatusInProgress, domain.BlockerStatusResolved:
		default:
			return nil, apperrors.NewValidationError("unknown blocker status", nil)
		}
		blocker.Status = *input.Status
		if *input.Status == domain.BlockerStatusResolved && input.ResolutionNotes != nil {
			blocker.ResolutionNotes = input.ResolutionNotes
		}
	}
	if input.Priority != nil {
		blocker.Priority = *input.Priority
	}
	if err := s.blockers.Update(ctx, blocker); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventBlockerUpdated,
		TemplateID: blocker.TemplateID,
		Actor:      actorRef(actor),
		Payload:    blockerPayload(blocker),
	})
	return blocker, nil
}

// DeleteBlocker removes the blocker and its thread unconditionally.
func (s *BlockerService) DeleteBlocker(ctx context.Context, actor *domain.Actor, blockerID string) error {
	blocker, err := s.loadBlocker(ctx, blockerID)
	if err != nil {
		return err
	}
	if _, err := s.visibleTemplate(ctx, actor, blocker.TemplateID); err != nil {
		return err
	}
	if err := s.blockers.Delete(ctx, blocker.ID); err != nil {
		return apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventBlockerDeleted,
		TemplateID: blocker.TemplateID,
		Actor:      actorRef(actor),
		Payload:    blockerPayload(blocker),
	})
	return nil
}

// ListBlockers returns blockers on a template with their threads excluded.
func (s *BlockerService) ListBlockers(ctx context.Context, actor *domain.Actor, templateID string) ([]domain.Blocker, error) {
	if _, err := s.visibleTemplate(ctx, actor, templateID); err != nil {
		return nil, err
	}
	blockers, err := s.blockers.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return blockers, nil
}

// AddDiscussion appends a message to a blocker thread.
func (s *BlockerService) AddDiscussion(ctx context.Context, actor *domain.Actor, blockerID, body string, isSolution bool) (*domain.DiscussionMessage, error) {
	blocker, err := s.loadBlocker(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleTemplate(ctx, actor, blocker.TemplateID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	message := &domain.DiscussionMessage{
		BlockerID:  blocker.ID,
		AuthorID:   actor.ID,
		Body:       strings.TrimSpace(body),
		IsSolution: isSolution,
	}
	if err := s.discussion.Create(ctx, message); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventCommentCreated,
		TemplateID: blocker.TemplateID,
		Actor:      actorRef(actor),
		Payload: events.CommentPayload{
			MessageID:  message.ID,
			BlockerID:  blocker.ID,
			AuthorID:   actor.ID,
			IsSolution: message.IsSolution,
			Body:       message.Body,
		},
	})
	return message, nil
}

// ListDiscussion returns the blocker thread in append order.
func (s *BlockerService) ListDiscussion(ctx context.Context, actor *domain.Actor, blockerID string) ([]domain.DiscussionMessage, error) {
	blocker, err := s.loadBlocker(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleTemplate(ctx, actor, blocker.TemplateID); err != nil {
		return nil, err
	}
	messages, err := s.discussion.ListByBlocker(ctx, blockerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return messages, nil
}

func (s *BlockerService) loadBlocker(ctx context.Context, blockerID string) (*domain.Blocker, error) {
	blocker, err := s.blockers.GetByID(ctx, blockerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("blocker", map[string]any{"blocker_id": blockerID})
		}
		return nil, apperrors.MapError(err)
	}
	return blocker, nil
}

func (s *BlockerService) visibleTemplate(ctx context.Context, actor *domain.Actor, templateID string) (*domain.Template, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("template", map[string]any{"template_id": templateID})
		}
		return nil, apperrors.MapError(err)
	}
	if !visibleToActor(template, actor) {
		return nil, apperrors.NewPermissionDenied("template assigned to another creator")
	}
	return template, nil
}

func blockerPayload(blocker *domain.Blocker) events.BlockerPayload {
	return events.BlockerPayload{
		BlockerID: blocker.ID,
		Status:    blocker.Status,
		Priority:  blocker.Priority,
		Title:     blocker.Title,
	}
}
