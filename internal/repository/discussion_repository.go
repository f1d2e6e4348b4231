package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/template-studio/internal/domain"
)

// DiscussionRepository stores append-only blocker threads.
type DiscussionRepository interface {
	Create(ctx context.Context, message *domain.DiscussionMessage) error
	ListByBlocker(ctx context.Context, blockerID string) ([]domain.DiscussionMessage, error)
}

type discussionRepository struct {
	pool *pgxpool.Pool
}

// NewDiscussionRepository constructs repository.
func NewDiscussionRepository(pool *pgxpool.Pool) DiscussionRepository {
	return &discussionRepository{pool: pool}
}

func (r *discussionRepository) Create(ctx context.Context, message *domain.DiscussionMessage) error {
	const query = `
        INSERT INTO discussion_messages (blocker_id, author_id, body, is_solution)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		message.BlockerID,
		message.AuthorID,
		message.Body,
		message.IsSolution,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *discussionRepository) ListByBlocker(ctx context.Context, blockerID string) ([]domain.DiscussionMessage, error) {
	const query = `
        SELECT id, blocker_id, author_id, body, is_solution, created_at
        FROM discussion_messages WHERE blocker_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, blockerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DiscussionMessage
	for rows.Next() {
		var message domain.DiscussionMessage
		if err := rows.Scan(
			&message.ID,
			&message.BlockerID,
			&message.AuthorID,
			&message.Body,
			&message.IsSolution,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, message)
	}
	return result, rows.Err()
}
