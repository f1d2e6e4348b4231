package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// ActorRepository encapsulates actor lookups. Actor provisioning happens in
// the account system; this engine only reads.
type ActorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
}

type actorRepository struct {
	pool *pgxpool.Pool
}

// NewActorRepository instantiates repository.
func NewActorRepository(pool *pgxpool.Pool) ActorRepository {
	return &actorRepository{pool: pool}
}

func (r *actorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	const query = `
        SELECT id, name, email, role, active, created_at, updated_at
        FROM actors WHERE id=$1`
	var actor domain.Actor
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&actor.ID,
		&actor.Name,
		&actor.Email,
		&actor.Role,
		&actor.Active,
		&actor.CreatedAt,
		&actor.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &actor, nil
}
