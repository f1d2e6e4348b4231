package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/template-studio/internal/config"
	"github.com/spec-kit/template-studio/internal/events"
)

// NotificationService emits notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTemplateCreated, n.handleTemplateEvent)
	n.dispatcher.Subscribe(events.EventTemplateUpdated, n.handleTemplateEvent)
	n.dispatcher.Subscribe(events.EventTemplateAssigned, n.handleTemplateEvent)
	n.dispatcher.Subscribe(events.EventTemplateDeleted, n.handleTemplateEvent)
	n.dispatcher.Subscribe(events.EventBlockerCreated, n.handleBlockerEvent)
	n.dispatcher.Subscribe(events.EventCommentCreated, n.handleCommentEvent)
}

func (n *NotificationService) handleTemplateEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("template event",
		zap.String("type", string(event.Type)),
		zap.String("template_id", event.TemplateID),
		zap.String("actor_id", event.Actor.ID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBlockerEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("blocker event",
		zap.String("type", string(event.Type)),
		zap.String("template_id", event.TemplateID))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCommentEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("comment event", zap.String("template_id", event.TemplateID))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("template_id", event.TemplateID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("template_id", event.TemplateID),
		zap.String("event_type", string(event.Type)))
}
