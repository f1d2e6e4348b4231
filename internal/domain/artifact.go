package domain

import "time"

// FlowArtifact stores metadata for an uploaded flow definition. The engine
// records presence only; parsing and validation happen elsewhere.
type FlowArtifact struct {
	ID         string
	TemplateID string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedBy string
	CreatedAt  time.Time
}
