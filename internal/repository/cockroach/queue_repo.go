package cockroach

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/repository"
)

// QueueRepo reads triage queues from CockroachDB.
type QueueRepo struct {
	pool *pgxpool.Pool
}

func NewQueueRepo(pool *pgxpool.Pool) *QueueRepo {
	return &QueueRepo{pool: pool}
}

func (r *QueueRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Queue, error) {
	return r.get(ctx, `SELECT id, name, is_default FROM queues WHERE id = $1`, id)
}

func (r *QueueRepo) GetDefault(ctx context.Context) (*domain.Queue, error) {
	return r.get(ctx, `SELECT id, name, is_default FROM queues WHERE is_default LIMIT 1`)
}

func (r *QueueRepo) List(ctx context.Context) ([]*domain.Queue, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, is_default FROM queues ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var out []*domain.Queue
	for rows.Next() {
		var q domain.Queue
		if err := rows.Scan(&q.ID, &q.Name, &q.IsDefault); err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (r *QueueRepo) get(ctx context.Context, query string, args ...any) (*domain.Queue, error) {
	var q domain.Queue
	err := r.pool.QueryRow(ctx, query, args...).Scan(&q.ID, &q.Name, &q.IsDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue: %w", err)
	}
	return &q, nil
}
