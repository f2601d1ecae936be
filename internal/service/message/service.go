package message

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
	"teleconsult-backend/internal/realtime"
	"teleconsult-backend/internal/repository"
	"teleconsult-backend/internal/service/consultation"
	"teleconsult-backend/pkg/constants"
	apperrors "teleconsult-backend/pkg/errors"
)

// Service handles the chat exchanged inside a consultation: text
// messages and attachments. Call records live in the call engine, not
// here.
type Service struct {
	messages      repository.MessageRepository
	consultations repository.ConsultationRepository
	broadcaster   realtime.Broadcaster
	attachments   *AttachmentStore
}

func NewService(
	messages repository.MessageRepository,
	consultations repository.ConsultationRepository,
	broadcaster realtime.Broadcaster,
	attachments *AttachmentStore,
) *Service {
	return &Service{
		messages:      messages,
		consultations: consultations,
		broadcaster:   broadcaster,
		attachments:   attachments,
	}
}

// SendText posts a text message to a consultation.
func (s *Service) SendText(ctx context.Context, consultationID, fromID uuid.UUID, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ValidationError("message text is required")
	}
	if len(text) > constants.MaxMessageLength {
		return nil, apperrors.ValidationError("message text too long")
	}

	c, err := s.openConsultationFor(ctx, consultationID, fromID)
	if err != nil {
		return nil, err
	}

	m := s.newMessage(c, fromID, domain.MessageTypeText)
	m.Text = text
	if err := s.messages.Save(ctx, m); err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.broadcastMessage(ctx, c, m)
	return m, nil
}

var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"audio/mpeg":      true,
	"audio/mp4":       true,
	"video/mp4":       true,
	"text/plain":      true,
}

// SendAttachment uploads a file and posts the attachment message.
func (s *Service) SendAttachment(ctx context.Context, consultationID, fromID uuid.UUID, fileName, contentType string, r io.Reader, size int64) (*domain.Message, error) {
	if fileName == "" {
		return nil, apperrors.ValidationError("file name is required")
	}
	if size <= 0 || size > constants.MaxAttachmentSize {
		return nil, apperrors.ValidationError("attachment size out of bounds")
	}
	if !allowedAttachmentTypes[contentType] {
		return nil, apperrors.ValidationError("unsupported attachment type")
	}

	c, err := s.openConsultationFor(ctx, consultationID, fromID)
	if err != nil {
		return nil, err
	}

	objectPath, err := s.attachments.Upload(ctx, consultationID, fileName, contentType, r, size)
	if err != nil {
		return nil, apperrors.DownstreamUnavailableError("attachment store", err)
	}

	m := s.newMessage(c, fromID, domain.MessageTypeAttachment)
	m.FileName = fileName
	m.MimeType = contentType
	m.FilePath = objectPath
	if err := s.messages.Save(ctx, m); err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.broadcastMessage(ctx, c, m)
	return m, nil
}

// AttachmentURL returns a presigned download link for an attachment
// message.
func (s *Service) AttachmentURL(ctx context.Context, consultationID, userID, messageID uuid.UUID, before time.Time) (string, error) {
	c, err := s.consultationFor(ctx, consultationID, userID)
	if err != nil {
		return "", err
	}

	history, err := s.messages.ListByConsultation(ctx, c.ID, 200, before)
	if err != nil {
		return "", apperrors.InternalError(err)
	}
	for _, m := range history {
		if m.ID == messageID && m.Type == domain.MessageTypeAttachment {
			url, err := s.attachments.DownloadURL(ctx, m.FilePath, m.FileName)
			if err != nil {
				return "", apperrors.DownstreamUnavailableError("attachment store", err)
			}
			return url, nil
		}
	}
	return "", apperrors.NotFoundError("attachment")
}

// History lists messages newest first, paged by the before cursor.
func (s *Service) History(ctx context.Context, consultationID, userID uuid.UUID, limit int, before time.Time) ([]*domain.Message, error) {
	c, err := s.consultationFor(ctx, consultationID, userID)
	if err != nil {
		return nil, err
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	out, err := s.messages.ListByConsultation(ctx, c.ID, limit, before)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return out, nil
}

func (s *Service) newMessage(c *domain.Consultation, fromID uuid.UUID, msgType domain.MessageType) *domain.Message {
	now := time.Now().UTC()
	return &domain.Message{
		ID:             uuid.New(),
		ConsultationID: c.ID,
		Bucket:         domain.CalculateBucket(now),
		From:           fromID,
		Type:           msgType,
		CreatedAt:      now,
	}
}

func (s *Service) broadcastMessage(ctx context.Context, c *domain.Consultation, m *domain.Message) {
	s.broadcaster.Broadcast(ctx, consultation.Resolve(c).Without(m.From), realtime.Event{
		Name: realtime.EventNewMessage,
		Payload: map[string]any{
			"consultation": c.ID,
			"message":      m,
		},
	})
}

// openConsultationFor loads a consultation that must still accept new
// content from the given participant.
func (s *Service) openConsultationFor(ctx context.Context, consultationID, userID uuid.UUID) (*domain.Consultation, error) {
	c, err := s.consultationFor(ctx, consultationID, userID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ConsultationClosed {
		return nil, apperrors.ConsultationNotOpenError()
	}
	return c, nil
}

func (s *Service) consultationFor(ctx context.Context, consultationID, userID uuid.UUID) (*domain.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ConsultationNotFoundError()
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if _, ok := consultation.RoleOf(c, userID); !ok {
		return nil, apperrors.NotParticipantError()
	}
	return c, nil
}
