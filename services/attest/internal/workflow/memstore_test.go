package workflow

import (
	"context"
	"sync"
	"time"

	"certflow/pkg/domain"
)

// memStore is an in-memory Store used by the workflow tests. It mirrors the
// Postgres store's contract: absent rows come back as (nil, nil), submitted
// responses are never rewritten, and ReplaceAssignments returns the prior
// set.
type memStore struct {
	mu          sync.Mutex
	mandates    map[string]domain.Mandate
	certs       map[string]domain.Certification
	assignments map[string]map[string]domain.Assignment
	responses   map[string]map[string]domain.Response
	events      []memEvent
	tick        time.Time
}

type memEvent struct {
	CertificationID string
	Type            string
	ActorID         string
	Payload         map[string]any
}

func newMemStore() *memStore {
	return &memStore{
		mandates:    map[string]domain.Mandate{},
		certs:       map[string]domain.Certification{},
		assignments: map[string]map[string]domain.Assignment{},
		responses:   map[string]map[string]domain.Response{},
		tick:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// next returns a strictly increasing timestamp, standing in for now() in SQL.
func (m *memStore) next() time.Time {
	m.tick = m.tick.Add(time.Second)
	return m.tick
}

func (m *memStore) CreateMandate(_ context.Context, md domain.Mandate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mandates[md.MandateID] = md
	return nil
}

func (m *memStore) GetMandate(_ context.Context, id string) (*domain.Mandate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.mandates[id]
	if !ok {
		return nil, nil
	}
	return &md, nil
}

func (m *memStore) UpdateMandateOwners(_ context.Context, id, ownerID, backupOwnerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.mandates[id]
	if !ok {
		return false, nil
	}
	md.OwnerID = ownerID
	md.BackupOwnerID = backupOwnerID
	m.mandates[id] = md
	return true, nil
}

func (m *memStore) SetMandateStatus(_ context.Context, id string, status domain.MandateStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.mandates[id]
	if !ok {
		return false, nil
	}
	md.Status = status
	m.mandates[id] = md
	return true, nil
}

func (m *memStore) CreateCertification(_ context.Context, c domain.Certification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certs[c.CertificationID] = c
	return nil
}

func (m *memStore) GetCertification(_ context.Context, id string) (*domain.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certs[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) UpdateCertificationDetails(_ context.Context, id, title, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.certs[id]
	c.Title = title
	c.Description = description
	m.certs[id] = c
	return nil
}

func (m *memStore) SetQuestions(_ context.Context, id string, questions []domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.certs[id]
	c.Questions = questions
	m.certs[id] = c
	return nil
}

func (m *memStore) SetDeadline(_ context.Context, id string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.certs[id]
	c.Deadline = &deadline
	m.certs[id] = c
	return nil
}

func (m *memStore) MarkPublished(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.certs[id]
	c.Status = domain.CertificationOpen
	c.PublishedAt = &at
	m.certs[id] = c
	return nil
}

func (m *memStore) MarkClosed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.certs[id]
	c.Status = domain.CertificationClosed
	c.ClosedAt = &at
	m.certs[id] = c
	return nil
}

func (m *memStore) DeleteCertification(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.certs[id]; !ok {
		return false, nil
	}
	delete(m.certs, id)
	delete(m.assignments, id)
	delete(m.responses, id)
	return true, nil
}

func (m *memStore) ListAssignments(_ context.Context, certificationID string) ([]domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Assignment
	for _, a := range m.assignments[certificationID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) GetAssignment(_ context.Context, certificationID, attesterID string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[certificationID][attesterID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) ReplaceAssignments(_ context.Context, certificationID string, next []domain.Assignment) ([]domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prior []domain.Assignment
	for _, a := range m.assignments[certificationID] {
		prior = append(prior, a)
	}
	rows := make(map[string]domain.Assignment, len(next))
	for _, a := range next {
		a.CreatedAt = m.next()
		rows[a.AttesterID] = a
	}
	m.assignments[certificationID] = rows
	return prior, nil
}

func (m *memStore) DeleteAssignment(_ context.Context, certificationID, attesterID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[certificationID][attesterID]; !ok {
		return false, nil
	}
	delete(m.assignments[certificationID], attesterID)
	return true, nil
}

func (m *memStore) GetResponse(_ context.Context, certificationID, attesterID string) (*domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[certificationID][attesterID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) SaveResponse(_ context.Context, certificationID, attesterID string, answers []domain.Answer) (*domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.responses[certificationID][attesterID]; ok && existing.Status == domain.ResponseSubmitted {
		return nil, &domain.ConflictError{Msg: "response already submitted"}
	}
	r := domain.Response{
		CertificationID: certificationID,
		AttesterID:      attesterID,
		Answers:         answers,
		Status:          domain.ResponseInProgress,
		LastSavedAt:     m.next(),
	}
	if m.responses[certificationID] == nil {
		m.responses[certificationID] = map[string]domain.Response{}
	}
	m.responses[certificationID][attesterID] = r
	return &r, nil
}

func (m *memStore) SubmitResponse(_ context.Context, certificationID, attesterID string, answers []domain.Answer) (*domain.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.responses[certificationID][attesterID]; ok && existing.Status == domain.ResponseSubmitted {
		return nil, &domain.ConflictError{Msg: "response already submitted"}
	}
	now := m.next()
	r := domain.Response{
		CertificationID: certificationID,
		AttesterID:      attesterID,
		Answers:         answers,
		Status:          domain.ResponseSubmitted,
		LastSavedAt:     now,
		SubmittedAt:     &now,
	}
	if m.responses[certificationID] == nil {
		m.responses[certificationID] = map[string]domain.Response{}
	}
	m.responses[certificationID][attesterID] = r
	return &r, nil
}

func (m *memStore) SubmittedAttesters(_ context.Context, certificationID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, r := range m.responses[certificationID] {
		if r.Status == domain.ResponseSubmitted {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memStore) GroupLevel1Counts(_ context.Context, certificationID, groupID string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total, submitted int
	for id, a := range m.assignments[certificationID] {
		if a.Level != domain.Level1 || a.GroupID != groupID {
			continue
		}
		total++
		if r, ok := m.responses[certificationID][id]; ok && r.Status == domain.ResponseSubmitted {
			submitted++
		}
	}
	return total, submitted, nil
}

func (m *memStore) GroupReviewer(_ context.Context, certificationID, groupID string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assignments[certificationID] {
		if a.Level == domain.Level2 && a.GroupID == groupID {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) AddEvent(_ context.Context, certificationID, typ, actorID string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, memEvent{certificationID, typ, actorID, payload})
	return nil
}
