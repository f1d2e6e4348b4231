package domain

import "time"

// Suggestion is an improvement note attached to a template.
type Suggestion struct {
	ID         string
	TemplateID string
	AuthorID   string
	Body       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
