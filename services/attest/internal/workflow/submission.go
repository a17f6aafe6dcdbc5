package workflow

import (
	"context"
	"fmt"
	"time"

	"certflow/pkg/domain"
)

// submissionContext checks the preconditions shared by save and submit: the
// certification exists and is not closed, the caller holds an assignment,
// and no submitted response exists yet for this pair.
func (s *Service) submissionContext(ctx context.Context, certificationID, attesterID string) (*domain.Certification, *domain.Assignment, error) {
	cert, err := s.store.GetCertification(ctx, certificationID)
	if err != nil {
		return nil, nil, err
	}
	if cert == nil {
		return nil, nil, &domain.NotFoundError{Kind: "certification", ID: certificationID}
	}
	if err := assertMutable(cert); err != nil {
		return nil, nil, err
	}
	assignment, err := s.store.GetAssignment(ctx, certificationID, attesterID)
	if err != nil {
		return nil, nil, err
	}
	if assignment == nil {
		return nil, nil, &domain.ForbiddenError{Msg: "caller is not assigned to this certification"}
	}
	existing, err := s.store.GetResponse(ctx, certificationID, attesterID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil && existing.Status == domain.ResponseSubmitted {
		return nil, nil, &domain.ConflictError{Msg: "response already submitted"}
	}
	return cert, assignment, nil
}

// SaveProgress upserts a draft response without field validation and returns
// the new last-saved timestamp. Safe to retry; a plain upsert either way.
func (s *Service) SaveProgress(ctx context.Context, attesterID, certificationID string, answers []domain.Answer) (time.Time, error) {
	if _, _, err := s.submissionContext(ctx, certificationID, attesterID); err != nil {
		return time.Time{}, err
	}
	saved, err := s.store.SaveResponse(ctx, certificationID, attesterID, answers)
	if err != nil {
		return time.Time{}, err
	}
	return saved.LastSavedAt, nil
}

// Submit validates completeness, stores the response as submitted, then runs
// the level-unlock check and fans out notifications. The stored submission
// is the durable fact of record: unlock-notification or owner-notification
// failures are logged and never undo it.
func (s *Service) Submit(ctx context.Context, attesterID, certificationID string, answers []domain.Answer) (*domain.Response, UnlockResult, error) {
	cert, _, err := s.submissionContext(ctx, certificationID, attesterID)
	if err != nil {
		return nil, UnlockResult{}, err
	}
	if err := domain.ValidateAnswers(cert.Questions, answers); err != nil {
		return nil, UnlockResult{}, err
	}

	resp, err := s.store.SubmitResponse(ctx, certificationID, attesterID, answers)
	if err != nil {
		return nil, UnlockResult{}, err
	}
	s.record(ctx, certificationID, "RESPONSE_SUBMITTED", attesterID, map[string]any{"answer_count": len(answers)})

	// From here on the submission is committed; everything below is
	// best-effort.
	unlock, err := CheckLevelUnlock(ctx, s.store, certificationID, attesterID)
	if err != nil {
		s.log.Printf("unlock check after submit by %s on %s failed: %v", attesterID, certificationID, err)
		unlock = UnlockResult{}
	}
	if unlock.ShouldUnlock {
		s.record(ctx, certificationID, "LEVEL_UNLOCKED", attesterID, map[string]any{
			"group_id": unlock.GroupID, "l2_attester_id": unlock.L2AttesterID,
		})
		s.enqueue(ctx, domain.Notification{
			RecipientUserID: unlock.L2AttesterID,
			Type:            domain.NotifyLevelUnlocked,
			Title:           "Review unlocked",
			Message:         fmt.Sprintf("All attesters in your group have submitted for %q. Your review is now available.", cert.Title),
			Link:            s.certificationLink(certificationID),
		})
	}

	mandate, err := s.store.GetMandate(ctx, cert.MandateID)
	if err != nil || mandate == nil {
		s.log.Printf("owner notification for %s skipped: mandate %s unavailable: %v", certificationID, cert.MandateID, err)
		return resp, unlock, nil
	}
	recipients := []string{mandate.OwnerID}
	if mandate.BackupOwnerID != "" {
		recipients = append(recipients, mandate.BackupOwnerID)
	}
	for _, userID := range recipients {
		s.enqueue(ctx, domain.Notification{
			RecipientUserID: userID,
			Type:            domain.NotifyAttestationSubmitted,
			Title:           "Attestation submitted",
			Message:         fmt.Sprintf("%s submitted their attestation for %q.", attesterID, cert.Title),
			Link:            s.certificationLink(certificationID),
		})
	}
	return resp, unlock, nil
}

// Response returns the caller's own response for a certification.
func (s *Service) Response(ctx context.Context, attesterID, certificationID string) (*domain.Response, error) {
	resp, err := s.store.GetResponse(ctx, certificationID, attesterID)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &domain.NotFoundError{Kind: "response", ID: certificationID}
	}
	return resp, nil
}
