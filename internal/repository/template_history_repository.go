package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// TemplateHistoryRepository stores audit entries.
type TemplateHistoryRepository interface {
	Create(ctx context.Context, history *domain.TemplateHistory) error
	ListByTemplate(ctx context.Context, templateID string) ([]domain.TemplateHistory, error)
}

type templateHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateHistoryRepository builds repository.
func NewTemplateHistoryRepository(pool *pgxpool.Pool) TemplateHistoryRepository {
	return &templateHistoryRepository{pool: pool}
}

func (r *templateHistoryRepository) Create(ctx context.Context, history *domain.TemplateHistory) error {
	const query = `
        INSERT INTO template_history (template_id, changed_by, changed_role, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		history.TemplateID,
		history.ChangedBy,
		history.ChangedRole,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *templateHistoryRepository) ListByTemplate(ctx context.Context, templateID string) ([]domain.TemplateHistory, error) {
	const query = `
        SELECT id, template_id, changed_by, changed_role, change_type, old_value, new_value, created_at
        FROM template_history WHERE template_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TemplateHistory
	for rows.Next() {
		var history domain.TemplateHistory
		if err := rows.Scan(
			&history.ID,
			&history.TemplateID,
			&history.ChangedBy,
			&history.ChangedRole,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
