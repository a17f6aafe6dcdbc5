package workflow

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"certflow/pkg/domain"

	"github.com/stretchr/testify/require"
)

const (
	ownerID  = "u-owner"
	backupID = "u-backup"
)

type recordingNotifier struct {
	mu       sync.Mutex
	sent     []domain.Notification
	failWith error
}

func (n *recordingNotifier) Enqueue(_ context.Context, msg domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) byType(t domain.NotificationType) []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Notification
	for _, msg := range n.sent {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

func newTestService(t *testing.T) (*Service, *memStore, *recordingNotifier) {
	t.Helper()
	st := newMemStore()
	nt := &recordingNotifier{}
	svc := New(st, nt, log.New(io.Discard, "", 0), "https://app.certflow.test")
	return svc, st, nt
}

// newDraft creates a mandate and a draft certification with one required
// yes/no question, the baseline fixture for most tests.
func newDraft(t *testing.T, svc *Service) *domain.Certification {
	t.Helper()
	ctx := context.Background()
	m, err := svc.CreateMandate(ctx, ownerID, "SOX access review", backupID)
	require.NoError(t, err)
	c, err := svc.CreateCertification(ctx, ownerID, m.MandateID, "Q1 access certification", "quarterly review")
	require.NoError(t, err)
	_, err = svc.SetQuestions(ctx, ownerID, c.CertificationID, []domain.Question{
		{ID: "q1", Text: "Access reviewed?", Type: domain.QuestionYesNo, Required: true},
	})
	require.NoError(t, err)
	return c
}

func requireValidation(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr
}

func requireClosedErr(t *testing.T, err error) {
	t.Helper()
	var cerr *domain.ClosedCertificationError
	require.ErrorAs(t, err, &cerr)
}

func requireConflict(t *testing.T, err error) {
	t.Helper()
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
}

func requireForbidden(t *testing.T, err error) {
	t.Helper()
	var ferr *domain.ForbiddenError
	require.ErrorAs(t, err, &ferr)
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	var nferr *domain.NotFoundError
	require.ErrorAs(t, err, &nferr)
}

var errSinkDown = errors.New("sink unavailable")
