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

// SuggestionService manages improvement notes on templates.
type SuggestionService struct {
	suggestions repository.SuggestionRepository
	templates   repository.TemplateRepository
	dispatcher  events.Dispatcher
}

// NewSuggestionService constructs the service.
func NewSuggestionService(suggestions repository.SuggestionRepository, templates repository.TemplateRepository, dispatcher events.Dispatcher) *SuggestionService {
	return &SuggestionService{suggestions: suggestions, templates: templates, dispatcher: dispatcher}
}

// CreateSuggestion adds a note to a visible template.
func (s *SuggestionService) CreateSuggestion(ctx context.Context, actor *domain.Actor, templateID, body string) (*domain.Suggestion, error) {
	template, err := s.visibleTemplate(ctx, actor, templateID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	suggestion := &domain.Suggestion{
		TemplateID: template.ID,
		AuthorID:   actor.ID,
		Body:       strings.TrimSpace(body),
	}
	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, actor, events.EventSuggestionCreated, suggestion)
	return suggestion, nil
}

// UpdateSuggestion edits a note; only the author or an admin may.
func (s *SuggestionService) UpdateSuggestion(ctx context.Context, actor *domain.Actor, suggestionID, body string) (*domain.Suggestion, error) {
	suggestion, err := s.loadSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && suggestion.AuthorID != actor.ID {
		return nil, apperrors.NewPermissionDenied("only the author may edit a suggestion")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}

	suggestion.Body = strings.TrimSpace(body)
	if err := s.suggestions.Update(ctx, suggestion); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, actor, events.EventSuggestionUpdated, suggestion)
	return suggestion, nil
}

// DeleteSuggestion removes a note; only the author or an admin may.
func (s *SuggestionService) DeleteSuggestion(ctx context.Context, actor *domain.Actor, suggestionID string) error {
	suggestion, err := s.loadSuggestion(ctx, suggestionID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleAdmin && suggestion.AuthorID != actor.ID {
		return apperrors.NewPermissionDenied("only the author may delete a suggestion")
	}
	if err := s.suggestions.Delete(ctx, suggestion.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.publish(ctx, actor, events.EventSuggestionDeleted, suggestion)
	return nil
}

// ListSuggestions returns notes on a visible template.
func (s *SuggestionService) ListSuggestions(ctx context.Context, actor *domain.Actor, templateID string) ([]domain.Suggestion, error) {
	if _, err := s.visibleTemplate(ctx, actor, templateID); err != nil {
		return nil, err
	}
	suggestions, err := s.suggestions.ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return suggestions, nil
}

func (s *SuggestionService) loadSuggestion(ctx context.Context, suggestionID string) (*domain.Suggestion, error) {
	suggestion, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("suggestion", map[string]any{"suggestion_id": suggestionID})
		}
		return nil, apperrors.MapError(err)
	}
	return suggestion, nil
}

func (s *SuggestionService) visibleTemplate(ctx context.Context, actor *domain.Actor, templateID string) (*domain.Template, error) {
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

func (s *SuggestionService) publish(ctx context.Context, actor *domain.Actor, eventType events.EventType, suggestion *domain.Suggestion) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       eventType,
		TemplateID: suggestion.TemplateID,
		Actor:      actorRef(actor),
		Payload: events.SuggestionPayload{
			SuggestionID: suggestion.ID,
			AuthorID:     suggestion.AuthorID,
			Body:         suggestion.Body,
		},
	})
}
