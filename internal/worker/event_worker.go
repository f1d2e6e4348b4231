package worker

import (
	"context"

	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/observability"
	"github.com/spec-kit/template-studio/internal/service"
)

// StartEventWorker attaches the Redis relay, notification handlers and event
// metrics to the dispatcher. Must run before the first mutation is served.
func StartEventWorker(dispatcher events.Dispatcher, bus *events.RedisBus, notifications *service.NotificationService, metrics *observability.Metrics) {
	if bus != nil {
		bus.Attach(dispatcher)
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if metrics != nil && dispatcher != nil {
		dispatcher.SubscribeAll(func(_ context.Context, event events.Event) error {
			metrics.RecordEvent(string(event.Type))
			return nil
		})
	}
}
