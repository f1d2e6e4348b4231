package domain

import "time"

// TemplateStatus enumerates lifecycle states for templates.
type TemplateStatus string

const (
	TemplateStatusNew        TemplateStatus = "NEW"
	TemplateStatusAssigned   TemplateStatus = "ASSIGNED"
	TemplateStatusInProgress TemplateStatus = "IN_PROGRESS"
	TemplateStatusSubmitted  TemplateStatus = "SUBMITTED"
	TemplateStatusNeedsFixes TemplateStatus = "NEEDS_FIXES"
	TemplateStatusReviewed   TemplateStatus = "REVIEWED"
	TemplateStatusPublished  TemplateStatus = "PUBLISHED"
	TemplateStatusArchived   TemplateStatus = "ARCHIVED"
)

// SyncState tracks whether the local record and the public catalog agree.
type SyncState string

const (
	SyncStateNeverPublished SyncState = "NEVER_PUBLISHED"
	SyncStateSynced         SyncState = "SYNCED"
	SyncStateDrifted        SyncState = "DRIFTED"
)

// Template is the aggregate moving through the review pipeline.
type Template struct {
	ID              string
	Title           string
	Description     string
	Status          TemplateStatus
	AssignedTo      *string
	CreatedBy       string
	DepartmentIDs   []string
	PriceCents      int64
	PublicCatalogID *string
	SyncState       SyncState
	FixCount        int
	ArtifactPresent bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
