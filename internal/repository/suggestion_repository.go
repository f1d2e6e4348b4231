package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// SuggestionRepository persists improvement notes.
type SuggestionRepository interface {
	Create(ctx context.Context, suggestion *domain.Suggestion) error
	Update(ctx context.Context, suggestion *domain.Suggestion) error
	GetByID(ctx context.Context, id string) (*domain.Suggestion, error)
	Delete(ctx context.Context, id string) error
	ListByTemplate(ctx context.Context, templateID string) ([]domain.Suggestion, error)
}

type suggestionRepository struct {
	pool *pgxpool.Pool
}

// NewSuggestionRepository constructs repository.
func NewSuggestionRepository(pool *pgxpool.Pool) SuggestionRepository {
	return &suggestionRepository{pool: pool}
}

func (r *suggestionRepository) Create(ctx context.Context, suggestion *domain.Suggestion) error {
	const query = `
        INSERT INTO suggestions (template_id, author_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		suggestion.TemplateID,
		suggestion.AuthorID,
		suggestion.Body,
	).Scan(&suggestion.ID, &suggestion.CreatedAt, &suggestion.UpdatedAt)
}

func (r *suggestionRepository) Update(ctx context.Context, suggestion *domain.Suggestion) error {
	const query = `
        UPDATE suggestions SET body=$1, updated_at=NOW() WHERE id=$2
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, suggestion.Body, suggestion.ID).Scan(&suggestion.UpdatedAt)
}

func (r *suggestionRepository) GetByID(ctx context.Context, id string) (*domain.Suggestion, error) {
	const query = `
        SELECT id, template_id, author_id, body, created_at, updated_at
        FROM suggestions WHERE id=$1`
	var suggestion domain.Suggestion
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&suggestion.ID,
		&suggestion.TemplateID,
		&suggestion.AuthorID,
		&suggestion.Body,
		&suggestion.CreatedAt,
		&suggestion.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &suggestion, nil
}

func (r *suggestionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM suggestions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *suggestionRepository) ListByTemplate(ctx context.Context, templateID string) ([]domain.Suggestion, error) {
	const query = `
        SELECT id, template_id, author_id, body, created_at, updated_at
        FROM suggestions WHERE template_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Suggestion
	for rows.Next() {
		var suggestion domain.Suggestion
		if err := rows.Scan(
			&suggestion.ID,
			&suggestion.TemplateID,
			&suggestion.AuthorID,
			&suggestion.Body,
			&suggestion.CreatedAt,
			&suggestion.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, suggestion)
	}
	return result, rows.Err()
}
