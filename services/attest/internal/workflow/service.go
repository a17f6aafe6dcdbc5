// Package workflow implements the certification lifecycle: draft → open →
// closed transitions with their guards, the two-tier assignment graph, the
// response submission pipeline, and the level-unlock engine.
package workflow

import (
	"context"
	"log"
	"time"

	"certflow/pkg/domain"

	"github.com/google/uuid"
)

// Store is the persistence the workflow needs. Get-style methods return
// (nil, nil) when the row is absent; the service maps that to NotFoundError.
type Store interface {
	CreateMandate(ctx context.Context, m domain.Mandate) error
	GetMandate(ctx context.Context, id string) (*domain.Mandate, error)
	UpdateMandateOwners(ctx context.Context, id, ownerID, backupOwnerID string) (bool, error)
	SetMandateStatus(ctx context.Context, id string, status domain.MandateStatus) (bool, error)

	CreateCertification(ctx context.Context, c domain.Certification) error
	GetCertification(ctx context.Context, id string) (*domain.Certification, error)
	UpdateCertificationDetails(ctx context.Context, id, title, description string) error
	SetQuestions(ctx context.Context, id string, questions []domain.Question) error
	SetDeadline(ctx context.Context, id string, deadline time.Time) error
	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkClosed(ctx context.Context, id string, at time.Time) error
	DeleteCertification(ctx context.Context, id string) (bool, error)

	ListAssignments(ctx context.Context, certificationID string) ([]domain.Assignment, error)
	ReplaceAssignments(ctx context.Context, certificationID string, next []domain.Assignment) ([]domain.Assignment, error)
	DeleteAssignment(ctx context.Context, certificationID, attesterID string) (bool, error)

	GetResponse(ctx context.Context, certificationID, attesterID string) (*domain.Response, error)
	SaveResponse(ctx context.Context, certificationID, attesterID string, answers []domain.Answer) (*domain.Response, error)
	SubmitResponse(ctx context.Context, certificationID, attesterID string, answers []domain.Answer) (*domain.Response, error)
	SubmittedAttesters(ctx context.Context, certificationID string) ([]string, error)

	AddEvent(ctx context.Context, certificationID, typ, actorID string, payload map[string]any) error

	UnlockStore
}

// Notifier is the external notification sink. Enqueue failures never roll
// back the state change that produced the event.
type Notifier interface {
	Enqueue(ctx context.Context, n domain.Notification) error
}

// Suggester produces candidate questions from a free-text requirement.
type Suggester interface {
	SuggestQuestions(ctx context.Context, requirement string, limit int) ([]domain.Question, error)
}

type Service struct {
	store     Store
	notifier  Notifier
	suggester Suggester
	log       *log.Logger
	baseLink  string
	now       func() time.Time
}

func New(store Store, notifier Notifier, logger *log.Logger, baseLink string) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:    store,
		notifier: notifier,
		log:      logger,
		baseLink: baseLink,
		now:      time.Now,
	}
}

// SetSuggester wires the question-generation collaborator. Without one,
// MergeSuggestedQuestions reports the feature as unavailable.
func (s *Service) SetSuggester(q Suggester) { s.suggester = q }

func newMandateID() string       { return "mnd_" + uuid.NewString() }
func newCertificationID() string { return "crt_" + uuid.NewString() }
func newQuestionID() string      { return "q_" + uuid.NewString() }

// enqueue is fire-and-forget: log and move on.
func (s *Service) enqueue(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		s.log.Printf("notify %s to %s failed: %v", n.Type, n.RecipientUserID, err)
	}
}

// record appends an audit event; audit loss is logged, never fatal.
func (s *Service) record(ctx context.Context, certificationID, typ, actorID string, payload map[string]any) {
	if err := s.store.AddEvent(ctx, certificationID, typ, actorID, payload); err != nil {
		s.log.Printf("record event %s on %s failed: %v", typ, certificationID, err)
	}
}

func (s *Service) certificationLink(certificationID string) string {
	return s.baseLink + "/certifications/" + certificationID
}

// AuthorizeManager reports whether the actor may manage the certification.
// Used by read paths that live outside the workflow, like the event log.
func (s *Service) AuthorizeManager(ctx context.Context, actorID, certificationID string) error {
	_, _, err := s.managedCertification(ctx, actorID, certificationID)
	return err
}

// mandateFor loads the certification and its mandate, enforcing that the
// actor is the mandate's owner or backup owner.
func (s *Service) managedCertification(ctx context.Context, actorID, certificationID string) (*domain.Certification, *domain.Mandate, error) {
	cert, err := s.store.GetCertification(ctx, certificationID)
	if err != nil {
		return nil, nil, err
	}
	if cert == nil {
		return nil, nil, &domain.NotFoundError{Kind: "certification", ID: certificationID}
	}
	mandate, err := s.store.GetMandate(ctx, cert.MandateID)
	if err != nil {
		return nil, nil, err
	}
	if mandate == nil {
		return nil, nil, &domain.NotFoundError{Kind: "mandate", ID: cert.MandateID}
	}
	if !mandate.ManagedBy(actorID) {
		return nil, nil, &domain.ForbiddenError{Msg: "caller is not the mandate owner or backup owner"}
	}
	return cert, mandate, nil
}
