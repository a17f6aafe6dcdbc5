package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"certflow/pkg/domain"
)

func (s *Service) CreateMandate(ctx context.Context, actorID, title, backupOwnerID string) (*domain.Mandate, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &domain.ValidationError{Msg: "mandate title is required", Fields: map[string]string{"title": "required"}}
	}
	if backupOwnerID == actorID {
		return nil, &domain.ValidationError{Msg: "backup owner must differ from owner", Fields: map[string]string{"backup_owner_id": "must differ from owner"}}
	}
	m := domain.Mandate{
		MandateID:     newMandateID(),
		Title:         title,
		OwnerID:       actorID,
		BackupOwnerID: backupOwnerID,
		Status:        domain.MandateOpen,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateMandate(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) GetMandate(ctx context.Context, mandateID string) (*domain.Mandate, error) {
	m, err := s.store.GetMandate(ctx, mandateID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &domain.NotFoundError{Kind: "mandate", ID: mandateID}
	}
	return m, nil
}

func (s *Service) UpdateMandateOwners(ctx context.Context, actorID, mandateID, ownerID, backupOwnerID string) error {
	m, err := s.GetMandate(ctx, mandateID)
	if err != nil {
		return err
	}
	if !m.ManagedBy(actorID) {
		return &domain.ForbiddenError{Msg: "caller is not the mandate owner or backup owner"}
	}
	if ownerID == "" {
		return &domain.ValidationError{Msg: "owner is required", Fields: map[string]string{"owner_id": "required"}}
	}
	if backupOwnerID == ownerID {
		return &domain.ValidationError{Msg: "backup owner must differ from owner", Fields: map[string]string{"backup_owner_id": "must differ from owner"}}
	}
	ok, err := s.store.UpdateMandateOwners(ctx, mandateID, ownerID, backupOwnerID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.NotFoundError{Kind: "mandate", ID: mandateID}
	}
	return nil
}

// SetMandateStatus opens or closes the mandate itself, independent of any
// certification's status.
func (s *Service) SetMandateStatus(ctx context.Context, actorID, mandateID string, status domain.MandateStatus) error {
	m, err := s.GetMandate(ctx, mandateID)
	if err != nil {
		return err
	}
	if !m.ManagedBy(actorID) {
		return &domain.ForbiddenError{Msg: "caller is not the mandate owner or backup owner"}
	}
	if status != domain.MandateOpen && status != domain.MandateClosed {
		return &domain.ValidationError{Msg: "invalid mandate status", Fields: map[string]string{"status": "must be OPEN or CLOSED"}}
	}
	ok, err := s.store.SetMandateStatus(ctx, mandateID, status)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.NotFoundError{Kind: "mandate", ID: mandateID}
	}
	return nil
}

func (s *Service) CreateCertification(ctx context.Context, actorID, mandateID, title, description string) (*domain.Certification, error) {
	m, err := s.GetMandate(ctx, mandateID)
	if err != nil {
		return nil, err
	}
	if !m.ManagedBy(actorID) {
		return nil, &domain.ForbiddenError{Msg: "caller is not the mandate owner or backup owner"}
	}
	if m.Status != domain.MandateOpen {
		return nil, &domain.ValidationError{Msg: "mandate is closed", Fields: map[string]string{"mandate_id": "mandate must be open"}}
	}
	if strings.TrimSpace(title) == "" {
		return nil, &domain.ValidationError{Msg: "certification title is required", Fields: map[string]string{"title": "required"}}
	}
	now := s.now()
	c := domain.Certification{
		CertificationID: newCertificationID(),
		MandateID:       mandateID,
		Title:           title,
		Description:     description,
		Questions:       []domain.Question{},
		Status:          domain.CertificationDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateCertification(ctx, c); err != nil {
		return nil, err
	}
	s.record(ctx, c.CertificationID, "CREATED", actorID, map[string]any{"mandate_id": mandateID, "title": title})
	return &c, nil
}

func (s *Service) GetCertification(ctx context.Context, certificationID string) (*domain.Certification, error) {
	c, err := s.store.GetCertification(ctx, certificationID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &domain.NotFoundError{Kind: "certification", ID: certificationID}
	}
	return c, nil
}

func (s *Service) UpdateCertificationDetails(ctx context.Context, actorID, certificationID, title, description string) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	if err := assertMutable(cert); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return &domain.ValidationError{Msg: "certification title is required", Fields: map[string]string{"title": "required"}}
	}
	return s.store.UpdateCertificationDetails(ctx, certificationID, title, description)
}

// SetQuestions replaces the question list. Questions are editable only while
// the certification is still a draft; once attesters can answer, the list is
// fixed. Entries without an id get one assigned before validation, which
// also covers items merged in from the question generator.
func (s *Service) SetQuestions(ctx context.Context, actorID, certificationID string, questions []domain.Question) ([]domain.Question, error) {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return nil, err
	}
	if err := assertMutable(cert); err != nil {
		return nil, err
	}
	if cert.Status != domain.CertificationDraft {
		return nil, &domain.ConflictError{Msg: "questions are fixed once the certification is published"}
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = newQuestionID()
		}
	}
	if err := domain.ValidateQuestions(questions); err != nil {
		return nil, err
	}
	if err := s.store.SetQuestions(ctx, certificationID, questions); err != nil {
		return nil, err
	}
	s.record(ctx, certificationID, "QUESTIONS_SET", actorID, map[string]any{"count": len(questions)})
	return questions, nil
}

// MergeSuggestedQuestions asks the generator for suggestions and appends them
// to the current list. The merged list goes through the same validation as a
// hand-written one, so the question cap and option rules still hold.
func (s *Service) MergeSuggestedQuestions(ctx context.Context, actorID, certificationID, requirement string, limit int) ([]domain.Question, error) {
	if s.suggester == nil {
		return nil, &domain.ValidationError{Msg: "question suggestions are not configured"}
	}
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return nil, err
	}
	if err := assertMutable(cert); err != nil {
		return nil, err
	}
	if cert.Status != domain.CertificationDraft {
		return nil, &domain.ConflictError{Msg: "questions are fixed once the certification is published"}
	}
	suggested, err := s.suggester.SuggestQuestions(ctx, requirement, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest questions: %w", err)
	}
	merged := append(append([]domain.Question{}, cert.Questions...), suggested...)
	for i := range merged {
		if merged[i].ID == "" {
			merged[i].ID = newQuestionID()
		}
	}
	if err := domain.ValidateQuestions(merged); err != nil {
		return nil, err
	}
	if err := s.store.SetQuestions(ctx, certificationID, merged); err != nil {
		return nil, err
	}
	s.record(ctx, certificationID, "QUESTIONS_SET", actorID, map[string]any{"count": len(merged), "suggested": len(suggested)})
	return merged, nil
}

// SetDeadline sets or moves the deadline. While the certification is open an
// existing deadline may only be extended, never moved earlier.
func (s *Service) SetDeadline(ctx context.Context, actorID, certificationID string, deadline time.Time) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	if err := assertMutable(cert); err != nil {
		return err
	}
	if cert.Status == domain.CertificationOpen && cert.Deadline != nil && deadline.Before(*cert.Deadline) {
		return &domain.ValidationError{
			Msg:    "deadline of an open certification may only be extended",
			Fields: map[string]string{"deadline": "must not be earlier than the current deadline"},
		}
	}
	if err := s.store.SetDeadline(ctx, certificationID, deadline); err != nil {
		return err
	}
	s.record(ctx, certificationID, "DEADLINE_SET", actorID, map[string]any{"deadline": deadline.UTC().Format(time.RFC3339)})
	return nil
}

// Publish transitions draft → open. Publishing requires at least one
// question; an already-open certification is a conflict, a closed one is
// terminal.
func (s *Service) Publish(ctx context.Context, actorID, certificationID string) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	switch cert.Status {
	case domain.CertificationClosed:
		return &domain.ClosedCertificationError{CertificationID: certificationID}
	case domain.CertificationOpen:
		return &domain.ConflictError{Msg: "certification is already published"}
	}
	if err := assertPublishable(cert); err != nil {
		return err
	}
	now := s.now()
	if err := s.store.MarkPublished(ctx, certificationID, now); err != nil {
		return err
	}
	s.record(ctx, certificationID, "PUBLISHED", actorID, map[string]any{"question_count": len(cert.Questions)})
	return nil
}

// Close transitions open → closed once every assigned attester has a
// submitted response. Closing an already-closed certification succeeds
// without re-executing side effects.
func (s *Service) Close(ctx context.Context, actorID, certificationID string) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	if cert.Status == domain.CertificationClosed {
		return nil
	}
	if cert.Status != domain.CertificationOpen {
		return &domain.ValidationError{Msg: "only an open certification can be closed"}
	}
	if err := s.assertClosable(ctx, certificationID); err != nil {
		return err
	}
	now := s.now()
	if err := s.store.MarkClosed(ctx, certificationID, now); err != nil {
		return err
	}
	s.record(ctx, certificationID, "CLOSED", actorID, map[string]any{})
	return nil
}

// DeleteCertification removes a draft or open certification with its
// assignments and responses. Closed certifications are kept as the record of
// the completed campaign.
func (s *Service) DeleteCertification(ctx context.Context, actorID, certificationID string) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	if err := assertMutable(cert); err != nil {
		return err
	}
	ok, err := s.store.DeleteCertification(ctx, certificationID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.NotFoundError{Kind: "certification", ID: certificationID}
	}
	return nil
}
