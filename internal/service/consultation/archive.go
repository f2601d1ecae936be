package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"teleconsult-backend/internal/domain"
)

// archive computes the anonymized summary of a closing consultation
// and persists it next to the per-call archive rows. The summary holds
// counts and durations only, no message content and no PII beyond the
// participant identity references needed for billing attribution.
func (s *Service) archive(ctx context.Context, c *domain.Consultation, closedAt time.Time) error {
	calls, err := s.calls.ListByConsultation(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load call history: %w", err)
	}
	senderCounts, err := s.messages.CountBySender(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	summary := &domain.ConsultationArchive{
		ID:                    uuid.New(),
		ConsultationID:        c.ID,
		Queue:                 c.Queue,
		Owner:                 c.Owner,
		AcceptedBy:            c.AcceptedBy,
		Doctor:                c.Doctor,
		ConsultationCreatedAt: c.CreatedAt,
		AcceptedAt:            c.AcceptedAt,
		ClosedAt:              closedAt,
		FirstCallAt:           c.FirstCallAt,
		PatientRating:         c.PatientRating,
		PatientComment:        c.PatientComment,
		DoctorRating:          c.DoctorRating,
		DoctorComment:         c.DoctorComment,
	}

	for sender, count := range senderCounts {
		role, ok := RoleOf(c, sender)
		if !ok {
			continue
		}
		switch role {
		case domain.RoleRequester:
			summary.PatientTextMessages += count
		case domain.RoleResponder:
			summary.DoctorTextMessages += count
		}
	}

	var (
		totalDuration time.Duration
		answered      int
		effective     = make(map[uuid.UUID]struct{})
		callArchives  = make([]domain.CallArchive, 0, len(calls))
	)
	for _, call := range calls {
		if call.AcceptedAt != nil {
			answered++
			summary.SuccessfulCalls++
			if call.ClosedAt != nil {
				totalDuration += call.ClosedAt.Sub(*call.AcceptedAt)
			}
		} else {
			summary.MissedCalls++
		}
		for _, p := range call.Participants {
			effective[p] = struct{}{}
		}
		callArchives = append(callArchives, domain.CallArchive{
			ID:             call.ID,
			ConsultationID: c.ID,
			Kind:           call.Kind,
			IsConference:   call.IsConferenceCall,
			Participants:   len(call.Participants),
			EndReason:      call.EndReason,
			CreatedAt:      call.CreatedAt,
			AcceptedAt:     call.AcceptedAt,
			ClosedAt:       call.ClosedAt,
		})
	}
	if answered > 0 {
		summary.AverageCallDuration = totalDuration.Minutes() / float64(answered)
	}
	summary.PlannedParticipants = plannedParticipants(c)
	summary.EffectiveParticipants = len(effective)

	if err := s.archives.SaveConsultation(ctx, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	if err := s.archives.SaveCalls(ctx, callArchives); err != nil {
		return fmt.Errorf("save call archives: %w", err)
	}
	return nil
}

// plannedParticipants counts the identities attached to the
// consultation, whether or not they ever connected.
func plannedParticipants(c *domain.Consultation) int {
	n := 1 // owner
	if c.AcceptedBy != nil || c.Doctor != nil {
		n++
	}
	if c.Translator != nil {
		n++
	}
	if c.Guest != nil {
		n++
	}
	return n + len(c.Experts)
}
