// Package feed implements the per-client projection of visible templates.
// A cache applies inbound events against an ordered-by-recency collection;
// duplicates and out-of-order events are safely ignorable, never errors.
package feed

import (
	"github.com/spec-kit/template-studio/internal/domain"
	"github.com/spec-kit/template-studio/internal/events"
)

// Viewer identifies the client the cache projects for. Room is the template
// detail view currently open, if any.
type Viewer struct {
	ActorID string
	Role    domain.ActorRole
	Room    string
}

// Effect tells the presentation layer what the applied event requires beyond
// the cache mutation itself.
type Effect int

const (
	EffectNone Effect = iota
	// EffectDetailGone fires when the aggregate open in the viewer's detail
	// room was deleted; the view has no valid further reads.
	EffectDetailGone
)

// Cache is an in-memory projection keyed by template id and ordered by
// recency (most recent first).
type Cache struct {
	viewer Viewer
	order  []string
	items  map[string]events.TemplatePayload
	stale  bool
}

// NewCache builds an empty projection for the viewer.
func NewCache(viewer Viewer) *Cache {
	return &Cache{
		viewer: viewer,
		items:  make(map[string]events.TemplatePayload),
	}
}

// SetRoom records which template detail view the client has open.
func (c *Cache) SetRoom(templateID string) {
	c.viewer.Room = templateID
}

// Stale reports whether the projection must be refetched before trusting
// further incremental events.
func (c *Cache) Stale() bool {
	return c.stale
}

// MarkStale flags the projection after transport loss. There is no replay
// log; the client refetches authoritative state on reconnect.
func (c *Cache) MarkStale() {
	c.stale = true
}

// Reset replaces the projection with an authoritative listing and clears the
// stale flag.
func (c *Cache) Reset(templates []events.TemplatePayload) {
	c.order = c.order[:0]
	c.items = make(map[string]events.TemplatePayload, len(templates))
	for _, t := range templates {
		if _, ok := c.items[t.ID]; ok {
			continue
		}
		c.order = append(c.order, t.ID)
		c.items[t.ID] = t
	}
	c.stale = false
}

// Templates returns the projection in recency order.
func (c *Cache) Templates() []events.TemplatePayload {
	out := make([]events.TemplatePayload, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	return len(c.order)
}

// Apply reconciles one inbound event. Applying the same event twice yields
// the same cache content as applying it once.
func (c *Cache) Apply(event events.Event) Effect {
	switch event.Type {
	case events.EventTemplateCreated:
		if payload, ok := templatePayload(event.Payload); ok {
			c.applyCreated(payload)
		}
	case events.EventTemplateUpdated, events.EventTemplateAssigned:
		if payload, ok := templatePayload(event.Payload); ok {
			c.applyUpdated(payload)
		}
	case events.EventTemplateDeleted:
		return c.applyDeleted(event.TemplateID)
	}
	return EffectNone
}

func (c *Cache) applyCreated(payload events.TemplatePayload) {
	if _, exists := c.items[payload.ID]; exists {
		return
	}
	if !c.visible(payload) {
		return
	}
	c.order = append([]string{payload.ID}, c.order...)
	c.items[payload.ID] = payload
}

func (c *Cache) applyUpdated(payload events.TemplatePayload) {
	if !c.visible(payload) {
		c.remove(payload.ID)
		return
	}
	// An update never materializes a new row; absent ids are a no-op.
	if _, exists := c.items[payload.ID]; !exists {
		return
	}
	c.items[payload.ID] = payload
}

func (c *Cache) applyDeleted(templateID string) Effect {
	c.remove(templateID)
	if c.viewer.Room != "" && c.viewer.Room == templateID {
		return EffectDetailGone
	}
	return EffectNone
}

// visible applies the role filter: creators only see templates that are
// unassigned or assigned to them.
func (c *Cache) visible(payload events.TemplatePayload) bool {
	if c.viewer.Role != domain.RoleCreator {
		return true
	}
	if payload.AssignedTo == nil {
		return true
	}
	return *payload.AssignedTo == c.viewer.ActorID
}

func (c *Cache) remove(templateID string) {
	if _, exists := c.items[templateID]; !exists {
		return
	}
	delete(c.items, templateID)
	for i, id := range c.order {
		if id == templateID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func templatePayload(payload interface{}) (events.TemplatePayload, bool) {
	switch p := payload.(type) {
	case events.TemplatePayload:
		return p, true
	case *events.TemplatePayload:
		return *p, true
	}
	return events.TemplatePayload{}, false
}
