package cockroach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/repository"
)

const callColumns = `
	id, consultation_id, kind, status, from_user, to_user,
	is_conference_call, participants, current_participants,
	relay_url, end_reason, created_at, accepted_at, closed_at`

// CallRepo is the CockroachDB call session store.
type CallRepo struct {
	pool *pgxpool.Pool
}

func NewCallRepo(pool *pgxpool.Pool) *CallRepo {
	return &CallRepo{pool: pool}
}

func (r *CallRepo) Create(ctx context.Context, call *domain.CallSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calls (
			id, consultation_id, kind, status, from_user, to_user,
			is_conference_call, participants, current_participants,
			relay_url, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		call.ID, call.ConsultationID, call.Kind, call.Status, call.From, call.To,
		call.IsConferenceCall, call.Participants, call.CurrentParticipants,
		call.RelayURL, call.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

func (r *CallRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CallSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+callColumns+` FROM calls WHERE id = $1`, id)
	return scanCall(row)
}

func (r *CallRepo) GetLiveByConsultation(ctx context.Context, consultationID uuid.UUID) (*domain.CallSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE consultation_id = $1 AND status <> $2
		ORDER BY created_at DESC
		LIMIT 1`, consultationID, domain.CallEnded)
	return scanCall(row)
}

func (r *CallRepo) SetOngoing(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls SET status = $1, accepted_at = $2
		WHERE id = $3 AND status = $4`,
		domain.CallOngoing, acceptedAt, id, domain.CallRinging)
	if err != nil {
		return false, fmt.Errorf("set call ongoing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CallRepo) OverwriteAccept(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls SET status = $1, accepted_at = $2
		WHERE id = $3 AND status <> $4`,
		domain.CallOngoing, acceptedAt, id, domain.CallEnded)
	if err != nil {
		return false, fmt.Errorf("overwrite accept: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CallRepo) End(ctx context.Context, id uuid.UUID, reason string, closedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls SET status = $1, end_reason = $2, closed_at = $3,
			current_participants = '{}'
		WHERE id = $4 AND status <> $1`,
		domain.CallEnded, reason, closedAt, id)
	if err != nil {
		return false, fmt.Errorf("end call: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CallRepo) AddCurrentParticipant(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET current_participants = array_append(array_remove(current_participants, $1), $1)
		WHERE id = $2 AND status <> $3`, userID, id, domain.CallEnded)
	if err != nil {
		return false, fmt.Errorf("add current participant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CallRepo) RemoveCurrentParticipant(ctx context.Context, id, userID uuid.UUID) (int, error) {
	var remaining *int
	err := r.pool.QueryRow(ctx, `
		UPDATE calls
		SET current_participants = array_remove(current_participants, $1)
		WHERE id = $2
		RETURNING array_length(current_participants, 1)`, userID, id).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("remove current participant: %w", err)
	}
	if remaining == nil {
		return 0, nil
	}
	return *remaining, nil
}

func (r *CallRepo) AddParticipant(ctx context.Context, id, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE calls
		SET participants = array_append(array_remove(participants, $1), $1)
		WHERE id = $2 AND status <> $3`, userID, id, domain.CallEnded)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

func (r *CallRepo) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*domain.CallSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+callColumns+` FROM calls
		WHERE consultation_id = $1
		ORDER BY created_at ASC`, consultationID)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()

	var out []*domain.CallSession
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, call)
	}
	return out, rows.Err()
}

func scanCall(row pgx.Row) (*domain.CallSession, error) {
	var (
		c         domain.CallSession
		endReason *string
	)
	err := row.Scan(
		&c.ID, &c.ConsultationID, &c.Kind, &c.Status, &c.From, &c.To,
		&c.IsConferenceCall, &c.Participants, &c.CurrentParticipants,
		&c.RelayURL, &endReason, &c.CreatedAt, &c.AcceptedAt, &c.ClosedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan call: %w", err)
	}
	if endReason != nil {
		c.EndReason = domain.EndReason(*endReason)
	}
	return &c, nil
}
