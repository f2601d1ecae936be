package cockroach

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleconsult-backend/internal/domain"
)

// ArchiveRepo stores anonymized summaries of closed consultations.
type ArchiveRepo struct {
	pool *pgxpool.Pool
}

func NewArchiveRepo(pool *pgxpool.Pool) *ArchiveRepo {
	return &ArchiveRepo{pool: pool}
}

func (r *ArchiveRepo) SaveConsultation(ctx context.Context, a *domain.ConsultationArchive) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO consultation_archives (
			id, consultation_id, queue_id, owner_id, accepted_by, doctor_id,
			consultation_created_at, accepted_at, closed_at, first_call_at,
			doctor_text_messages, patient_text_messages,
			successful_calls, missed_calls, average_call_duration,
			planned_participants, effective_participants,
			patient_rating, patient_comment, doctor_rating, doctor_comment
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (consultation_id) DO NOTHING`,
		a.ID, a.ConsultationID, a.Queue, a.Owner, a.AcceptedBy, a.Doctor,
		a.ConsultationCreatedAt, a.AcceptedAt, a.ClosedAt, a.FirstCallAt,
		a.DoctorTextMessages, a.PatientTextMessages,
		a.SuccessfulCalls, a.MissedCalls, a.AverageCallDuration,
		a.PlannedParticipants, a.EffectiveParticipants,
		a.PatientRating, a.PatientComment, a.DoctorRating, a.DoctorComment,
	)
	if err != nil {
		return fmt.Errorf("insert consultation archive: %w", err)
	}
	return nil
}

func (r *ArchiveRepo) SaveCalls(ctx context.Context, calls []domain.CallArchive) error {
	if len(calls) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range calls {
		batch.Queue(`
			INSERT INTO call_archives (
				id, consultation_id, kind, is_conference, participants,
				end_reason, created_at, accepted_at, closed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (id) DO NOTHING`,
			c.ID, c.ConsultationID, c.Kind, c.IsConference, c.Participants,
			string(c.EndReason), c.CreatedAt, c.AcceptedAt, c.ClosedAt)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range calls {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert call archive: %w", err)
		}
	}
	return nil
}
