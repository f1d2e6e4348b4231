package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// TemplateFilter captures listing parameters. VisibleToCreator scopes the
// listing to templates the given creator may see (assigned to them or
// unassigned).
type TemplateFilter struct {
	Statuses         []domain.TemplateStatus
	AssignedTo       *string
	CreatedBy        *string
	DepartmentID     *string
	VisibleToCreator *string
	Limit            int
	Offset           int
}

// TemplateRepository encapsulates template persistence.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.Template) error
	Update(ctx context.Context, template *domain.Template) error
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	Delete(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter TemplateFilter) ([]domain.Template, error)
}

type templateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository instantiates repository.
func NewTemplateRepository(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepository{pool: pool}
}

const templateColumns = `t.id, t.title, t.description, t.status, t.assigned_to, t.created_by,
       t.department_ids, t.price_cents, t.public_catalog_id, t.sync_state, t.fix_count,
       EXISTS (SELECT 1 FROM flow_artifacts fa WHERE fa.template_id = t.id) AS artifact_present,
       t.created_at, t.updated_at`

func (r *templateRepository) Create(ctx context.Context, template *domain.Template) error {
	const query = `
        INSERT INTO templates (title, description, status, assigned_to, created_by, department_ids, price_cents, sync_state)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		template.Title,
		template.Description,
		template.Status,
		template.AssignedTo,
		template.CreatedBy,
		template.DepartmentIDs,
		template.PriceCents,
		template.SyncState,
	).Scan(&template.ID, &template.CreatedAt, &template.UpdatedAt)
}

func (r *templateRepository) Update(ctx context.Context, template *domain.Template) error {
	const query = `
        UPDATE templates SET title=$1, description=$2, status=$3, assigned_to=$4, department_ids=$5,
            price_cents=$6, public_catalog_id=$7, sync_state=$8, fix_count=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		template.Title,
		template.Description,
		template.Status,
		template.AssignedTo,
		template.DepartmentIDs,
		template.PriceCents,
		template.PublicCatalogID,
		template.SyncState,
		template.FixCount,
		template.ID,
	).Scan(&template.UpdatedAt)
	if err == pgx.ErrNoRows {
		return pgx.ErrNoRows
	}
	return err
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM templates t WHERE t.id=$1`, templateColumns)
	var template domain.Template
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&template.ID,
		&template.Title,
		&template.Description,
		&template.Status,
		&template.AssignedTo,
		&template.CreatedBy,
		&template.DepartmentIDs,
		&template.PriceCents,
		&template.PublicCatalogID,
		&template.SyncState,
		&template.FixCount,
		&template.ArtifactPresent,
		&template.CreatedAt,
		&template.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM templates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *templateRepository) ListWithFilter(ctx context.Context, filter TemplateFilter) ([]domain.Template, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(t.department_ids)", len(args)))
	}
	if filter.VisibleToCreator != nil {
		args = append(args, *filter.VisibleToCreator)
		clauses = append(clauses, fmt.Sprintf("(t.assigned_to IS NULL OR t.assigned_to=$%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM templates t WHERE %s ORDER BY t.updated_at DESC LIMIT %d OFFSET %d`,
		templateColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Template
	for rows.Next() {
		var template domain.Template
		if err := rows.Scan(
			&template.ID,
			&template.Title,
			&template.Description,
			&template.Status,
			&template.AssignedTo,
			&template.CreatedBy,
			&template.DepartmentIDs,
			&template.PriceCents,
			&template.PublicCatalogID,
			&template.SyncState,
			&template.FixCount,
			&template.ArtifactPresent,
			&template.CreatedAt,
			&template.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, template)
	}
	return result, rows.Err()
}
