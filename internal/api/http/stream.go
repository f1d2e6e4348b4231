package http

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/template-studio/internal/auth"
	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
	"github.com/spec-kit/template-studio/internal/repository"
)

const streamActorKey = "stream_actor"

// StreamHandler upgrades websocket clients onto the event feed. Every client
// receives the global feed; joining a room additionally delivers that
// template's room channel for detail views.
type StreamHandler struct {
	bus    *events.RedisBus
	tokens *auth.TokenManager
	actors repository.ActorRepository
	logger *zap.Logger
}

// NewStreamHandler constructs the handler.
func NewStreamHandler(bus *events.RedisBus, tokens *auth.TokenManager, actors repository.ActorRepository, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{bus: bus, tokens: tokens, actors: actors, logger: logger}
}

// Register mounts the websocket endpoint.
func (h *StreamHandler) Register(app *fiber.App) {
	app.Use("/ws/events", h.upgrade)
	app.Get("/ws/events", websocket.New(h.serve))
}

// upgrade authenticates before the protocol switch. Browsers cannot set an
// Authorization header on websocket requests, so a token query parameter is
// accepted as well.
func (h *StreamHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		header := c.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		return fiber.ErrUnauthorized
	}

	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	actor, err := h.actors.GetByID(c.Context(), claims.ActorID)
	if err != nil || !actor.Active {
		return fiber.ErrUnauthorized
	}

	c.Locals(streamActorKey, actor)
	return c.Next()
}

type streamControl struct {
	Action     string `json:"action"`
	TemplateID string `json:"template_id"`
}

type streamFrame struct {
	Scope string       `json:"scope"`
	Event events.Event `json:"event"`
}

func (h *StreamHandler) serve(conn *websocket.Conn) {
	actor, ok := conn.Locals(streamActorKey).(*domain.Actor)
	if !ok {
		_ = conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.bus.SubscribeFeed(ctx)
	defer sub.Close()

	var mu sync.Mutex
	room := ""

	// Reader: control frames only. Any read error ends the session.
	go func() {
		defer cancel()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ctrl streamControl
			if err := json.Unmarshal(raw, &ctrl); err != nil {
				continue
			}
			mu.Lock()
			switch ctrl.Action {
			case "join":
				room = ctrl.TemplateID
			case "leave":
				room = ""
			}
			mu.Unlock()
		}
	}()

	h.logger.Debug("stream client connected", zap.String("actor_id", actor.ID))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-msgs:
			if !open {
				return
			}
			scope := "feed"
			if msg.Channel != events.FeedChannel {
				mu.Lock()
				joined := room != "" && msg.Channel == events.RoomChannel(room)
				mu.Unlock()
				if !joined {
					continue
				}
				scope = "room"
			}

			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Warn("drop malformed stream event", zap.Error(err))
				continue
			}
			frame, err := json.Marshal(streamFrame{Scope: scope, Event: event})
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}
}
