package cockroach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/repository"
)

const consultationColumns = `
	id, status, owner_id, queue_id, doctor_id, accepted_by, translator_id,
	guest_id, experts, invitation_token,
	flag_patient_online, flag_patient_notified,
	flag_doctor_online, flag_doctor_notified,
	flag_guest_online, flag_guest_notified,
	flag_translator_online, flag_translator_notified,
	flag_experts_online, flag_experts_notified,
	patient_rating, patient_comment, doctor_rating, doctor_comment,
	created_at, accepted_at, closed_at, first_call_at`

// ConsultationRepo is the CockroachDB consultation store.
type ConsultationRepo struct {
	pool *pgxpool.Pool
}

func NewConsultationRepo(pool *pgxpool.Pool) *ConsultationRepo {
	return &ConsultationRepo{pool: pool}
}

func (r *ConsultationRepo) Create(ctx context.Context, c *domain.Consultation) error {
	expertsOnline, err := json.Marshal(c.FlagExpertsOnline)
	if err != nil {
		return fmt.Errorf("marshal expert flags: %w", err)
	}
	expertsNotified, err := json.Marshal(c.FlagExpertsNotified)
	if err != nil {
		return fmt.Errorf("marshal expert flags: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO consultations (
			id, status, owner_id, queue_id, doctor_id, accepted_by,
			translator_id, guest_id, experts, invitation_token,
			flag_patient_online, flag_patient_notified,
			flag_doctor_online, flag_doctor_notified,
			flag_guest_online, flag_guest_notified,
			flag_translator_online, flag_translator_notified,
			flag_experts_online, flag_experts_notified,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		c.ID, c.Status, c.Owner, c.Queue, c.Doctor, c.AcceptedBy,
		c.Translator, c.Guest, c.Experts, c.InvitationToken,
		c.FlagPatientOnline, c.FlagPatientNotified,
		c.FlagDoctorOnline, c.FlagDoctorNotified,
		c.FlagGuestOnline, c.FlagGuestNotified,
		c.FlagTranslatorOnline, c.FlagTranslatorNotified,
		expertsOnline, expertsNotified,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (r *ConsultationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Consultation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+consultationColumns+` FROM consultations WHERE id = $1`, id)
	return scanConsultation(row)
}

func (r *ConsultationRepo) AcceptPending(ctx context.Context, id, doctorID uuid.UUID, acceptedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET status = $1, accepted_by = $2, accepted_at = $3
		WHERE id = $4 AND status = $5`,
		domain.ConsultationActive, doctorID, acceptedAt, id, domain.ConsultationPending)
	if err != nil {
		return false, fmt.Errorf("accept consultation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ConsultationRepo) MarkClosed(ctx context.Context, id uuid.UUID, closedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET status = $1, closed_at = $2
		WHERE id = $3 AND status <> $1`,
		domain.ConsultationClosed, closedAt, id)
	if err != nil {
		return false, fmt.Errorf("close consultation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ConsultationRepo) SetPresence(ctx context.Context, id uuid.UUID, role domain.Role, userID uuid.UUID, online bool) error {
	if role == domain.RoleExpert {
		return r.setExpertFlag(ctx, id, userID, "flag_experts_online", online, online)
	}
	onlineCol, notifiedCol, err := flagColumns(role)
	if err != nil {
		return err
	}

	var query string
	if online {
		// Coming online clears any pending missed-call notification.
		query = fmt.Sprintf(`UPDATE consultations SET %s = $1, %s = false WHERE id = $2`, onlineCol, notifiedCol)
	} else {
		query = fmt.Sprintf(`UPDATE consultations SET %s = $1 WHERE id = $2`, onlineCol)
	}
	if _, err := r.pool.Exec(ctx, query, online, id); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (r *ConsultationRepo) SetNotified(ctx context.Context, id uuid.UUID, role domain.Role, userID uuid.UUID, notified bool) error {
	if role == domain.RoleExpert {
		return r.setExpertFlag(ctx, id, userID, "flag_experts_notified", notified, false)
	}
	_, notifiedCol, err := flagColumns(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE consultations SET %s = $1 WHERE id = $2`, notifiedCol)
	if _, err := r.pool.Exec(ctx, query, notified, id); err != nil {
		return fmt.Errorf("set notified: %w", err)
	}
	return nil
}

func (r *ConsultationRepo) setExpertFlag(ctx context.Context, id, userID uuid.UUID, column string, value, clearNotified bool) error {
	query := fmt.Sprintf(`
		UPDATE consultations
		SET %s = jsonb_set(coalesce(%s, '{}'), array[$1::STRING], to_jsonb($2::BOOL))
		WHERE id = $3`, column, column)
	if _, err := r.pool.Exec(ctx, query, userID.String(), value, id); err != nil {
		return fmt.Errorf("set expert flag: %w", err)
	}
	if clearNotified {
		return r.setExpertFlag(ctx, id, userID, "flag_experts_notified", false, false)
	}
	return nil
}

func flagColumns(role domain.Role) (onlineCol, notifiedCol string, err error) {
	switch role {
	case domain.RoleRequester:
		return "flag_patient_online", "flag_patient_notified", nil
	case domain.RoleResponder:
		return "flag_doctor_online", "flag_doctor_notified", nil
	case domain.RoleGuest:
		return "flag_guest_online", "flag_guest_notified", nil
	case domain.RoleTranslator:
		return "flag_translator_online", "flag_translator_notified", nil
	default:
		return "", "", fmt.Errorf("role %q has no presence flags", role)
	}
}

func (r *ConsultationRepo) SetFirstCallAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE consultations SET first_call_at = $1
		WHERE id = $2 AND first_call_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("set first call time: %w", err)
	}
	return nil
}

func (r *ConsultationRepo) SetFeedback(ctx context.Context, id uuid.UUID, role domain.Role, rating, comment string) error {
	var query string
	switch role {
	case domain.RoleRequester:
		query = `UPDATE consultations SET patient_rating = $1, patient_comment = $2 WHERE id = $3`
	case domain.RoleResponder:
		query = `UPDATE consultations SET doctor_rating = $1, doctor_comment = $2 WHERE id = $3`
	default:
		return fmt.Errorf("role %q cannot leave feedback", role)
	}
	if _, err := r.pool.Exec(ctx, query, rating, comment, id); err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	return nil
}

func (r *ConsultationRepo) ListForUser(ctx context.Context, user *domain.User) ([]*domain.Consultation, error) {
	queueIDs := user.AllowedQueues
	if queueIDs == nil {
		queueIDs = []uuid.UUID{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE owner_id = $1
		   OR accepted_by = $1
		   OR (doctor_id = $1 AND queue_id IS NULL)
		   OR translator_id = $1
		   OR guest_id = $1
		   OR $1 = ANY(experts)
		   OR (status = $2 AND ($3 OR queue_id = ANY($4)))
		ORDER BY created_at DESC`,
		user.ID, domain.ConsultationPending, user.ViewAllQueues, queueIDs)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConsultationRepo) ListStaleOpen(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM consultations
		WHERE status <> $1 AND created_at < $2`,
		domain.ConsultationClosed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale consultations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanConsultation(row pgx.Row) (*domain.Consultation, error) {
	var (
		c               domain.Consultation
		expertsOnline   []byte
		expertsNotified []byte
	)
	err := row.Scan(
		&c.ID, &c.Status, &c.Owner, &c.Queue, &c.Doctor, &c.AcceptedBy,
		&c.Translator, &c.Guest, &c.Experts, &c.InvitationToken,
		&c.FlagPatientOnline, &c.FlagPatientNotified,
		&c.FlagDoctorOnline, &c.FlagDoctorNotified,
		&c.FlagGuestOnline, &c.FlagGuestNotified,
		&c.FlagTranslatorOnline, &c.FlagTranslatorNotified,
		&expertsOnline, &expertsNotified,
		&c.PatientRating, &c.PatientComment, &c.DoctorRating, &c.DoctorComment,
		&c.CreatedAt, &c.AcceptedAt, &c.ClosedAt, &c.FirstCallAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan consultation: %w", err)
	}

	if len(expertsOnline) > 0 {
		if err := json.Unmarshal(expertsOnline, &c.FlagExpertsOnline); err != nil {
			return nil, fmt.Errorf("unmarshal expert flags: %w", err)
		}
	}
	if len(expertsNotified) > 0 {
		if err := json.Unmarshal(expertsNotified, &c.FlagExpertsNotified); err != nil {
			return nil, fmt.Errorf("unmarshal expert flags: %w", err)
		}
	}
	return &c, nil
}
