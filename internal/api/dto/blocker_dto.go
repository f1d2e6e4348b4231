package dto

import (
	"time"

	"github.com/spec-kit/template-studio/internal/domain"
)

// BlockerCreateRequest payload for new blockers.
type BlockerCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// BlockerUpdateRequest payload for blocker status/priority updates.
type BlockerUpdateRequest struct {
	Status          *string `json:"status"`
	Priority        *string `json:"priority"`
	ResolutionNotes *string `json:"resolution_notes"`
}

// DiscussionRequest appends a message to a blocker thread.
type DiscussionRequest struct {
	Body       string `json:"body"`
	IsSolution bool   `json:"is_solution"`
}

// SuggestionRequest payload for suggestion create/update.
type SuggestionRequest struct {
	Body string `json:"body"`
}

// BlockerResponse canonical blocker representation.
type BlockerResponse struct {
	ID              string    `json:"id"`
	TemplateID      string    `json:"template_id"`
	CreatedBy       string    `json:"created_by"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	ResolutionNotes *string   `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DiscussionResponse one thread message.
type DiscussionResponse struct {
	ID         string    `json:"id"`
	BlockerID  string    `json:"blocker_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	IsSolution bool      `json:"is_solution"`
	CreatedAt  time.Time `json:"created_at"`
}

// SuggestionResponse one improvement note.
type SuggestionResponse struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewBlockerResponse maps a blocker.
func NewBlockerResponse(b *domain.Blocker) BlockerResponse {
	return BlockerResponse{
		ID:              b.ID,
		TemplateID:      b.TemplateID,
		CreatedBy:       b.CreatedBy,
		Title:           b.Title,
		Description:     b.Description,
		Status:          string(b.Status),
		Priority:        string(b.Priority),
		ResolutionNotes: b.ResolutionNotes,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// NewDiscussionResponse maps a thread message.
func NewDiscussionResponse(m *domain.DiscussionMessage) DiscussionResponse {
	return DiscussionResponse{
		ID:         m.ID,
		BlockerID:  m.BlockerID,
		AuthorID:   m.AuthorID,
		Body:       m.Body,
		IsSolution: m.IsSolution,
		CreatedAt:  m.CreatedAt,
	}
}

// NewSuggestionResponse maps a suggestion.
func NewSuggestionResponse(s *domain.Suggestion) SuggestionResponse {
	return SuggestionResponse{
		ID:         s.ID,
		TemplateID: s.TemplateID,
		AuthorID:   s.AuthorID,
		Body:       s.Body,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
