package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// FeedChannel is the global feed every client receives.
	FeedChannel = "events:feed"
	// roomPrefix scopes per-template rooms.
	roomPrefix = "events:template:"
)

// RoomChannel returns the pub/sub channel for one template's room.
func RoomChannel(templateID string) string {
	return roomPrefix + templateID
}

// RedisBus mirrors dispatched events onto Redis pub/sub so every connected
// instance can fan them out to its websocket clients. Delivery is
// at-least-once per subscriber; ordering holds per template only.
type RedisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus builds the bus.
func NewRedisBus(client *redis.Client, logger *zap.Logger) *RedisBus {
	return &RedisBus{client: client, logger: logger}
}

// Attach subscribes the bus to every event the dispatcher publishes.
func (b *RedisBus) Attach(dispatcher Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.SubscribeAll(b.relay)
}

func (b *RedisBus) relay(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("marshal event", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	if err := b.client.Publish(ctx, FeedChannel, body).Err(); err != nil {
		b.logger.Warn("publish feed event", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	if event.TemplateID != "" {
		if err := b.client.Publish(ctx, RoomChannel(event.TemplateID), body).Err(); err != nil {
			b.logger.Warn("publish room event",
				zap.String("event_id", event.ID),
				zap.String("template_id", event.TemplateID),
				zap.Error(err))
			return err
		}
	}
	return nil
}

// SubscribeFeed opens a subscription covering the global feed and all rooms.
// Callers route messages by channel name.
func (b *RedisBus) SubscribeFeed(ctx context.Context) *redis.PubSub {
	return b.client.PSubscribe(ctx, FeedChannel, roomPrefix+"*")
}
