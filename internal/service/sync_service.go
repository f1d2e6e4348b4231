package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/template-studio/internal/catalog"
	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/repository"
	apperrors "github.com/spec-kit/template-studio/pkg/util/errorutil"
)

// SyncService keeps the public catalog aligned with local template state.
// The local transition commits first; the catalog call follows and is never
// retried automatically. A failed call leaves the template DRIFTED until an
// explicit re-sync.
type SyncService struct {
	publisher  catalog.Publisher
	templates  repository.TemplateRepository
	history    repository.TemplateHistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSyncService constructs the service.
func NewSyncService(publisher catalog.Publisher, templates repository.TemplateRepository, history repository.TemplateHistoryRepository, dispatcher events.Dispatcher, logger *zap.Logger) *SyncService {
	return &SyncService{
		publisher:  publisher,
		templates:  templates,
		history:    history,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SyncAfterTransition pushes a just-committed publish or archive transition
// to the catalog and records the outcome on the template.
func (s *SyncService) SyncAfterTransition(ctx context.Context, actor *domain.Actor, template *domain.Template) error {
	switch template.Status {
	case domain.TemplateStatusPublished:
		return s.pushPublished(ctx, actor, template)
	case domain.TemplateStatusArchived:
		if template.PublicCatalogID == nil {
			return nil
		}
		return s.pushArchived(ctx, actor, template)
	}
	return nil
}

// Resync is the manual entry point for drifted templates. It replays the
// catalog call implied by the current local status.
func (s *SyncService) Resync(ctx context.Context, actor *domain.Actor, template *domain.Template) (*domain.Template, error) {
	switch template.Status {
	case domain.TemplateStatusPublished:
		if err := s.pushPublished(ctx, actor, template); err != nil {
			return template, err
		}
	case domain.TemplateStatusArchived:
		if template.PublicCatalogID == nil {
			return nil, apperrors.NewValidationError("template has no catalog record to sync", nil)
		}
		if err := s.pushArchived(ctx, actor, template); err != nil {
			return template, err
		}
	default:
		return nil, apperrors.NewValidationError("template status does not involve the catalog", map[string]any{
			"status": template.Status,
		})
	}
	return template, nil
}

func (s *SyncService) pushPublished(ctx context.Context, actor *domain.Actor, template *domain.Template) error {
	if template.PublicCatalogID == nil {
		remoteID, err := s.publisher.Publish(ctx, template)
		if err != nil {
			return s.markDrifted(ctx, actor, template, err)
		}
		// Remote ids are assigned once and never reused.
		template.PublicCatalogID = &remoteID
	} else {
		if err := s.publisher.Update(ctx, *template.PublicCatalogID, template); err != nil {
			return s.markDrifted(ctx, actor, template, err)
		}
	}
	return s.markSynced(ctx, actor, template)
}

func (s *SyncService) pushArchived(ctx context.Context, actor *domain.Actor, template *domain.Template) error {
	if err := s.publisher.Delete(ctx, *template.PublicCatalogID); err != nil {
		return s.markDrifted(ctx, actor, template, err)
	}
	return s.markSynced(ctx, actor, template)
}

func (s *SyncService) markSynced(ctx context.Context, actor *domain.Actor, template *domain.Template) error {
	oldState := template.SyncState
	template.SyncState = domain.SyncStateSynced
	if err := s.templates.Update(ctx, template); err != nil {
		return apperrors.MapError(err)
	}
	s.recordSyncChange(ctx, actor, template, oldState)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTemplateUpdated,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.SnapshotTemplate(template),
	})
	return nil
}

func (s *SyncService) markDrifted(ctx context.Context, actor *domain.Actor, template *domain.Template, cause error) error {
	s.logger.Warn("catalog call failed; template drifted",
		zap.String("template_id", template.ID),
		zap.Error(cause))

	oldState := template.SyncState
	template.SyncState = domain.SyncStateDrifted
	if err := s.templates.Update(ctx, template); err != nil {
		return apperrors.MapError(err)
	}
	s.recordSyncChange(ctx, actor, template, oldState)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       events.EventTemplateUpdated,
		TemplateID: template.ID,
		Actor:      actorRef(actor),
		Payload:    events.SnapshotTemplate(template),
	})
	return apperrors.NewExternalSyncFailure(template.ID, cause)
}

func (s *SyncService) recordSyncChange(ctx context.Context, actor *domain.Actor, template *domain.Template, oldState domain.SyncState) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	_ = s.history.Create(ctx, &domain.TemplateHistory{
		TemplateID:  template.ID,
		ChangedBy:   &actorID,
		ChangedRole: actor.Role,
		ChangeType:  domain.ChangeTypeSync,
		OldValue:    map[string]any{"sync_state": oldState},
		NewValue: map[string]any{
			"sync_state":        template.SyncState,
			"public_catalog_id": template.PublicCatalogID,
		},
	})
}
