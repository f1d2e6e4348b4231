package dto

import (
	"time"

	"github.com/spec-kit/template-studio/internal/domain"
)

// TemplateCreateRequest payload for new templates.
type TemplateCreateRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	DepartmentIDs []string `json:"department_ids"`
	PriceCents    int64    `json:"price_cents"`
}

// TemplateStatusRequest requests one lifecycle transition.
type TemplateStatusRequest struct {
	Status string `json:"status"`
}

// TemplateAssignRequest payload for explicit assignment.
type TemplateAssignRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// ArtifactRequest registers uploaded flow definition metadata.
type ArtifactRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TemplateResponse is the canonical template representation.
type TemplateResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	AssignedTo      *string   `json:"assigned_to,omitempty"`
	CreatedBy       string    `json:"created_by"`
	DepartmentIDs   []string  `json:"department_ids,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	PublicCatalogID *string   `json:"public_catalog_id,omitempty"`
	SyncState       string    `json:"sync_state"`
	FixCount        int       `json:"fix_count"`
	ArtifactPresent bool      `json:"artifact_present"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID          string         `json:"id"`
	ChangedBy   *string        `json:"changed_by,omitempty"`
	ChangedRole string         `json:"changed_role"`
	ChangeType  string         `json:"change_type"`
	OldValue    map[string]any `json:"old_value,omitempty"`
	NewValue    map[string]any `json:"new_value,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewTemplateResponse maps the aggregate.
func NewTemplateResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          string(t.Status),
		AssignedTo:      t.AssignedTo,
		CreatedBy:       t.CreatedBy,
		DepartmentIDs:   t.DepartmentIDs,
		PriceCents:      t.PriceCents,
		PublicCatalogID: t.PublicCatalogID,
		SyncState:       string(t.SyncState),
		FixCount:        t.FixCount,
		ArtifactPresent: t.ArtifactPresent,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// NewTemplateListResponse maps a slice of aggregates.
func NewTemplateListResponse(templates []domain.Template) []TemplateResponse {
	out := make([]TemplateResponse, 0, len(templates))
	for i := range templates {
		out = append(out, NewTemplateResponse(&templates[i]))
	}
	return out
}

// NewHistoryResponse maps one history entry.
func NewHistoryResponse(h domain.TemplateHistory) HistoryResponse {
	return HistoryResponse{
		ID:          h.ID,
		ChangedBy:   h.ChangedBy,
		ChangedRole: string(h.ChangedRole),
		ChangeType:  string(h.ChangeType),
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		CreatedAt:   h.CreatedAt,
	}
}
