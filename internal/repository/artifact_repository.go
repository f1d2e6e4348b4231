package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// ArtifactRepository persists flow artifact metadata.
type ArtifactRepository interface {
	Create(ctx context.Context, artifact *domain.FlowArtifact) error
	ListByTemplate(ctx context.Context, templateID string) ([]domain.FlowArtifact, error)
	ExistsForTemplate(ctx context.Context, templateID string) (bool, error)
}

type artifactRepository struct {
	pool *pgxpool.Pool
}

// NewArtifactRepository constructs repository.
func NewArtifactRepository(pool *pgxpool.Pool) ArtifactRepository {
	return &artifactRepository{pool: pool}
}

func (r *artifactRepository) Create(ctx context.Context, artifact *domain.FlowArtifact) error {
	const query = `
        INSERT INTO flow_artifacts (template_id, storage_key, file_name, mime_type, size_bytes, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		artifact.TemplateID,
		artifact.StorageKey,
		artifact.FileName,
		artifact.MimeType,
		artifact.SizeBytes,
		artifact.UploadedBy,
	).Scan(&artifact.ID, &artifact.CreatedAt)
}

func (r *artifactRepository) ListByTemplate(ctx context.Context, templateID string) ([]domain.FlowArtifact, error) {
	const query = `
        SELECT id, template_id, storage_key, file_name, mime_type, size_bytes, uploaded_by, created_at
        FROM flow_artifacts WHERE template_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.FlowArtifact
	for rows.Next() {
		var artifact domain.FlowArtifact
		if err := rows.Scan(
			&artifact.ID,
			&artifact.TemplateID,
			&artifact.StorageKey,
			&artifact.FileName,
			&artifact.MimeType,
			&artifact.SizeBytes,
			&artifact.UploadedBy,
			&artifact.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, artifact)
	}
	return result, rows.Err()
}

func (r *artifactRepository) ExistsForTemplate(ctx context.Context, templateID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM flow_artifacts WHERE template_id=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, templateID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
