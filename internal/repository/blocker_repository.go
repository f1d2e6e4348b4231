package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// BlockerRepository encapsulates blocker persistence.
type BlockerRepository interface {
	Create(ctx context.Context, blocker *domain.Blocker) error
	Update(ctx context.Context, blocker *domain.Blocker) error
	GetByID(ctx context.Context, id string) (*domain.Blocker, error)
	Delete(ctx context.Context, id string) error
	ListByTemplate(ctx context.Context, templateID string) ([]domain.Blocker, error)
}

type blockerRepository struct {
	pool *pgxpool.Pool
}

// NewBlockerRepository instantiates repository.
func NewBlockerRepository(pool *pgxpool.Pool) BlockerRepository {
	return &blockerRepository{pool: pool}
}

func (r *blockerRepository) Create(ctx context.Context, blocker *domain.Blocker) error {
	const query = `
        INSERT INTO blockers (template_id, created_by, title, description, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		blocker.TemplateID,
		blocker.CreatedBy,
		blocker.Title,
		blocker.Description,
		blocker.Status,
		blocker.Priority,
	).Scan(&blocker.ID, &blocker.CreatedAt, &blocker.UpdatedAt)
}

func (r *blockerRepository) Update(ctx context.Context, blocker *domain.Blocker) error {
	const query = `
        UPDATE blockers SET title=$1, description=$2, status=$3, priority=$4, resolution_notes=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		blocker.Title,
		blocker.Description,
		blocker.Status,
		blocker.Priority,
		blocker.ResolutionNotes,
		blocker.ID,
	).Scan(&blocker.UpdatedAt)
}

func (r *blockerRepository) GetByID(ctx context.Context, id string) (*domain.Blocker, error) {
	const query = `
        SELECT id, template_id, created_by, title, description, status, priority, resolution_notes, created_at, updated_at
        FROM blockers WHERE id=$1`
	var blocker domain.Blocker
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&blocker.ID,
		&blocker.TemplateID,
		&blocker.CreatedBy,
		&blocker.Title,
		&blocker.Description,
		&blocker.Status,
		&blocker.Priority,
		&blocker.ResolutionNotes,
		&blocker.CreatedAt,
		&blocker.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &blocker, nil
}

func (r *blockerRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM blockers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *blockerRepository) ListByTemplate(ctx context.Context, templateID string) ([]domain.Blocker, error) {
	const query = `
        SELECT id, template_id, created_by, title, description, status, priority, resolution_notes, created_at, updated_at
        FROM blockers WHERE template_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Blocker
	for rows.Next() {
		var blocker domain.Blocker
		if err := rows.Scan(
			&blocker.ID,
			&blocker.TemplateID,
			&blocker.CreatedBy,
			&blocker.Title,
			&blocker.Description,
			&blocker.Status,
			&blocker.Priority,
			&blocker.ResolutionNotes,
			&blocker.CreatedAt,
			&blocker.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, blocker)
	}
	return result, rows.Err()
}
