package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
)

// MessageRepo stores the chat history in Cassandra. Messages are
// partitioned by consultation and clustered by time, newest first.
type MessageRepo struct {
	session *gocql.Session
}

func NewMessageRepo(session *gocql.Session) *MessageRepo {
	return &MessageRepo{session: session}
}

func (r *MessageRepo) Save(ctx context.Context, m *domain.Message) error {
	var to *string
	if m.To != nil {
		s := m.To.String()
		to = &s
	}
	err := r.session.Query(`
		INSERT INTO messages (
			consultation_id, created_at, id, bucket, from_user, to_user,
			type, text, mime_type, file_name, file_path, read
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ConsultationID.String(), m.CreatedAt, m.ID.String(), m.Bucket,
		m.From.String(), to, string(m.Type), m.Text,
		m.MimeType, m.FileName, m.FilePath, m.Read,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListByConsultation(ctx context.Context, consultationID uuid.UUID, limit int, before time.Time) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	iter := r.session.Query(`
		SELECT consultation_id, created_at, id, bucket, from_user, to_user,
			type, text, mime_type, file_name, file_path, read
		FROM messages
		WHERE consultation_id = ? AND created_at < ?
		ORDER BY created_at DESC
		LIMIT ?`,
		consultationID.String(), before, limit,
	).WithContext(ctx).Iter()

	var out []*domain.Message
	for {
		m, ok, err := scanMessage(iter)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

func (r *MessageRepo) CountBySender(ctx context.Context, consultationID uuid.UUID) (map[uuid.UUID]int, error) {
	iter := r.session.Query(`
		SELECT from_user, type FROM messages WHERE consultation_id = ?`,
		consultationID.String(),
	).WithContext(ctx).Iter()

	counts := make(map[uuid.UUID]int)
	var fromStr, msgType string
	for iter.Scan(&fromStr, &msgType) {
		if msgType != string(domain.MessageTypeText) {
			continue
		}
		from, err := uuid.Parse(fromStr)
		if err != nil {
			continue
		}
		counts[from]++
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	return counts, nil
}

func scanMessage(iter *gocql.Iter) (*domain.Message, bool, error) {
	var (
		m                  domain.Message
		idStr, consultStr  string
		fromStr            string
		toStr              *string
		msgType            string
	)
	ok := iter.Scan(
		&consultStr, &m.CreatedAt, &idStr, &m.Bucket, &fromStr, &toStr,
		&msgType, &m.Text, &m.MimeType, &m.FileName, &m.FilePath, &m.Read,
	)
	if !ok {
		return nil, false, nil
	}

	var err error
	if m.ID, err = uuid.Parse(idStr); err != nil {
		return nil, false, fmt.Errorf("parse message id: %w", err)
	}
	if m.ConsultationID, err = uuid.Parse(consultStr); err != nil {
		return nil, false, fmt.Errorf("parse consultation id: %w", err)
	}
	if m.From, err = uuid.Parse(fromStr); err != nil {
		return nil, false, fmt.Errorf("parse sender id: %w", err)
	}
	if toStr != nil {
		to, err := uuid.Parse(*toStr)
		if err != nil {
			return nil, false, fmt.Errorf("parse recipient id: %w", err)
		}
		m.To = &to
	}
	m.Type = domain.MessageType(msgType)
	return &m, true, nil
}
