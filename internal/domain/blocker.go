package domain

import "time"

// BlockerStatus enumerates blocker states.
type BlockerStatus string

const (
	BlockerStatusOpen       BlockerStatus = "OPEN"
	BlockerStatusInProgress BlockerStatus = "IN_PROGRESS"
	BlockerStatusResolved   BlockerStatus = "RESOLVED"
)

// BlockerPriority enumerates urgency.
type BlockerPriority string

const (
	BlockerPriorityLow      BlockerPriority = "LOW"
	BlockerPriorityMedium   BlockerPriority = "MEDIUM"
	BlockerPriorityHigh     BlockerPriority = "HIGH"
	BlockerPriorityCritical BlockerPriority = "CRITICAL"
)

// Blocker reports an obstacle on exactly one template.
type Blocker struct {
	ID              string
	TemplateID      string
	CreatedBy       string
	Title           string
	Description     string
	Status          BlockerStatus
	Priority        BlockerPriority
	ResolutionNotes *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DiscussionMessage is an append-only entry in a blocker thread.
type DiscussionMessage struct {
	ID         string
	BlockerID  string
	AuthorID   string
	Body       string
	IsSolution bool
	CreatedAt  time.Time
}
