package domain

import "time"

// TemplateChangeType captures what changed in a history entry.
type TemplateChangeType string

const (
	ChangeTypeStatus   TemplateChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee TemplateChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeSync     TemplateChangeType = "SYNC_CHANGE"
)

// TemplateHistory is an immutable audit trail entry.
type TemplateHistory struct {
	ID          string
	TemplateID  string
	ChangedBy   *string
	ChangedRole ActorRole
	ChangeType  TemplateChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
