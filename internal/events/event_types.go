package events

import (
	"time"

	"github.com/spec-kit/template-studio/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTemplateCreated  EventType = "template:created"
	EventTemplateUpdated  EventType = "template:updated"
	EventTemplateAssigned EventType = "template:assigned"
	EventTemplateDeleted  EventType = "template:deleted"

	EventCommentCreated EventType = "comment:created"

	EventBlockerCreated EventType = "blocker:created"
	EventBlockerUpdated EventType = "blocker:updated"
	EventBlockerDeleted EventType = "blocker:deleted"

	EventSuggestionCreated EventType = "suggestion:created"
	EventSuggestionUpdated EventType = "suggestion:updated"
	EventSuggestionDeleted EventType = "suggestion:deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string           `json:"id"`
	Role domain.ActorRole `json:"role"`
}

// Event is a domain event emitted by services. TemplateID scopes the event
// to its aggregate room; delivery order matches commit order per template.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TemplateID string      `json:"template_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TemplatePayload is the aggregate snapshot carried by template events.
// Clients reconcile their local caches from it without a refetch.
type TemplatePayload struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Status          domain.TemplateStatus `json:"status"`
	AssignedTo      *string               `json:"assigned_to,omitempty"`
	CreatedBy       string                `json:"created_by"`
	DepartmentIDs   []string              `json:"department_ids,omitempty"`
	PriceCents      int64                 `json:"price_cents"`
	PublicCatalogID *string               `json:"public_catalog_id,omitempty"`
	SyncState       domain.SyncState      `json:"sync_state"`
	FixCount        int                   `json:"fix_count"`
	ArtifactPresent bool                  `json:"artifact_present"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TemplateDeletedPayload payload.
type TemplateDeletedPayload struct {
	ID string `json:"id"`
}

// CommentPayload carries a discussion message.
type CommentPayload struct {
	MessageID  string `json:"message_id"`
	BlockerID  string `json:"blocker_id"`
	AuthorID   string `json:"author_id"`
	IsSolution bool   `json:"is_solution"`
	Body       string `json:"body"`
}

// BlockerPayload payload.
type BlockerPayload struct {
	BlockerID string                 `json:"blocker_id"`
	Status    domain.BlockerStatus   `json:"status"`
	Priority  domain.BlockerPriority `json:"priority"`
	Title     string                 `json:"title"`
}

// SuggestionPayload payload.
type SuggestionPayload struct {
	SuggestionID string `json:"suggestion_id"`
	AuthorID     string `json:"author_id"`
	Body         string `json:"body"`
}

// SnapshotTemplate builds the event payload from an aggregate.
func SnapshotTemplate(t *domain.Template) TemplatePayload {
	return TemplatePayload{
		ID:              t.ID,
		Title:           t.Title,
		Status:          t.Status,
		AssignedTo:      t.AssignedTo,
		CreatedBy:       t.CreatedBy,
		DepartmentIDs:   t.DepartmentIDs,
		PriceCents:      t.PriceCents,
		PublicCatalogID: t.PublicCatalogID,
		SyncState:       t.SyncState,
		FixCount:        t.FixCount,
		ArtifactPresent: t.ArtifactPresent,
		UpdatedAt:       t.UpdatedAt,
	}
}
