package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"certflow/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRequiresQuestions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	m, err := svc.CreateMandate(ctx, ownerID, "SOX access review", backupID)
	require.NoError(t, err)
	c, err := svc.CreateCertification(ctx, ownerID, m.MandateID, "Q1 access certification", "")
	require.NoError(t, err)

	verr := requireValidation(t, svc.Publish(ctx, ownerID, c.CertificationID))
	assert.Contains(t, verr.Fields, "questions")

	_, err = svc.SetQuestions(ctx, ownerID, c.CertificationID, []domain.Question{
		{Text: "Access reviewed?", Type: domain.QuestionYesNo, Required: true},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))

	got, err := svc.GetCertification(ctx, c.CertificationID)
	require.NoError(t, err)
	assert.Equal(t, domain.CertificationOpen, got.Status)
	require.NotNil(t, got.PublishedAt)
}

func TestPublishStateConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))

	requireConflict(t, svc.Publish(ctx, ownerID, c.CertificationID))
}

func TestPublishRequiresOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	c := newDraft(t, svc)
	requireForbidden(t, svc.Publish(context.Background(), "u-stranger", c.CertificationID))
}

func TestBackupOwnerMayManage(t *testing.T) {
	svc, _, _ := newTestService(t)
	c := newDraft(t, svc)
	require.NoError(t, svc.Publish(context.Background(), backupID, c.CertificationID))
}

func TestSetQuestionsAssignsIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	qs, err := svc.SetQuestions(ctx, ownerID, c.CertificationID, []domain.Question{
		{Text: "Anything to report?", Type: domain.QuestionText},
	})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.NotEmpty(t, qs[0].ID)
}

func TestSetQuestionsLockedOncePublished(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))

	_, err := svc.SetQuestions(ctx, ownerID, c.CertificationID, []domain.Question{
		{ID: "q9", Text: "late edit", Type: domain.QuestionText},
	})
	requireConflict(t, err)
}

func TestDeadlineExtendOnlyOnceOpen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)

	d1 := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SetDeadline(ctx, ownerID, c.CertificationID, d1))

	// Still a draft: moving the deadline earlier is fine.
	earlier := d1.AddDate(0, -1, 0)
	require.NoError(t, svc.SetDeadline(ctx, ownerID, c.CertificationID, earlier))

	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))

	verr := requireValidation(t, svc.SetDeadline(ctx, ownerID, c.CertificationID, earlier.AddDate(0, 0, -7)))
	assert.Contains(t, verr.Fields, "deadline")

	require.NoError(t, svc.SetDeadline(ctx, ownerID, c.CertificationID, earlier.AddDate(0, 2, 0)))
}

func TestCloseGuards(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))

	// No assignments at all.
	requireValidation(t, svc.Close(ctx, ownerID, c.CertificationID))

	require.NoError(t, svc.ReplaceAssignments(ctx, ownerID, c.CertificationID,
		[]AssignmentEntry{{UserID: "u-a"}, {UserID: "u-b"}}, nil))

	_, _, err := svc.Submit(ctx, "u-a", c.CertificationID, []domain.Answer{{QuestionID: "q1", Value: true}})
	require.NoError(t, err)

	verr := requireValidation(t, svc.Close(ctx, ownerID, c.CertificationID))
	assert.Contains(t, verr.Fields, "u-b")
	assert.NotContains(t, verr.Fields, "u-a")

	_, _, err = svc.Submit(ctx, "u-b", c.CertificationID, []domain.Answer{{QuestionID: "q1", Value: false}})
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, ownerID, c.CertificationID))

	got, err := svc.GetCertification(ctx, c.CertificationID)
	require.NoError(t, err)
	assert.Equal(t, domain.CertificationClosed, got.Status)
	require.NotNil(t, got.ClosedAt)
}

func TestCloseIsIdempotent(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))
	require.NoError(t, svc.ReplaceAssignments(ctx, ownerID, c.CertificationID,
		[]AssignmentEntry{{UserID: "u-a"}}, nil))
	_, _, err := svc.Submit(ctx, "u-a", c.CertificationID, []domain.Answer{{QuestionID: "q1", Value: true}})
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, ownerID, c.CertificationID))
	closeEvents := countEvents(st, c.CertificationID, "CLOSED")

	require.NoError(t, svc.Close(ctx, ownerID, c.CertificationID))
	assert.Equal(t, closeEvents, countEvents(st, c.CertificationID, "CLOSED"), "re-close must not re-run side effects")
}

func TestClosedCertificationRejectsMutation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))
	require.NoError(t, svc.ReplaceAssignments(ctx, ownerID, c.CertificationID,
		[]AssignmentEntry{{UserID: "u-a"}}, nil))
	_, _, err := svc.Submit(ctx, "u-a", c.CertificationID, []domain.Answer{{QuestionID: "q1", Value: true}})
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, ownerID, c.CertificationID))

	requireClosedErr(t, svc.ReplaceAssignments(ctx, ownerID, c.CertificationID,
		[]AssignmentEntry{{UserID: "u-c"}}, nil))
	requireClosedErr(t, svc.Unassign(ctx, ownerID, c.CertificationID, "u-a"))
	_, err = svc.SaveProgress(ctx, "u-a", c.CertificationID, nil)
	requireClosedErr(t, err)
	_, _, err = svc.Submit(ctx, "u-a", c.CertificationID, []domain.Answer{{QuestionID: "q1", Value: true}})
	requireClosedErr(t, err)
	requireClosedErr(t, svc.SetDeadline(ctx, ownerID, c.CertificationID, time.Now().AddDate(0, 1, 0)))
	requireClosedErr(t, svc.DeleteCertification(ctx, ownerID, c.CertificationID))
}

func TestCreateCertificationRequiresOpenMandate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	m, err := svc.CreateMandate(ctx, ownerID, "SOX access review", backupID)
	require.NoError(t, err)
	require.NoError(t, svc.SetMandateStatus(ctx, ownerID, m.MandateID, domain.MandateClosed))

	_, err = svc.CreateCertification(ctx, ownerID, m.MandateID, "late campaign", "")
	requireValidation(t, err)
}

type stubSuggester struct {
	questions []domain.Question
	err       error
}

func (s *stubSuggester) SuggestQuestions(ctx context.Context, requirement string, limit int) ([]domain.Question, error) {
	return s.questions, s.err
}

func TestMergeSuggestedQuestions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	svc.SetSuggester(&stubSuggester{questions: []domain.Question{
		{Text: "Is MFA enforced?", Type: domain.QuestionYesNo, Required: true},
	}})

	merged, err := svc.MergeSuggestedQuestions(ctx, ownerID, c.CertificationID, "access controls", 1)
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "q1", merged[0].ID, "existing questions keep their ids")
	assert.NotEmpty(t, merged[1].ID, "suggested questions get ids on merge")

	got, err := svc.GetCertification(ctx, c.CertificationID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)
}

func TestMergeSuggestedQuestionsRespectsCap(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	over := make([]domain.Question, domain.MaxQuestions)
	for i := range over {
		over[i] = domain.Question{Text: fmt.Sprintf("extra %d", i), Type: domain.QuestionText}
	}
	svc.SetSuggester(&stubSuggester{questions: over})

	_, err := svc.MergeSuggestedQuestions(ctx, ownerID, c.CertificationID, "everything", len(over))
	requireValidation(t, err)

	got, err := svc.GetCertification(ctx, c.CertificationID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 1, "failed merge must not change the stored list")
}

func TestMergeSuggestedQuestionsDraftOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := newDraft(t, svc)
	svc.SetSuggester(&stubSuggester{questions: []domain.Question{{Text: "late", Type: domain.QuestionText}}})
	require.NoError(t, svc.Publish(ctx, ownerID, c.CertificationID))

	_, err := svc.MergeSuggestedQuestions(ctx, ownerID, c.CertificationID, "x", 1)
	requireConflict(t, err)
}

func TestMandateNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateCertification(context.Background(), ownerID, "mnd_missing", "x", "")
	requireNotFound(t, err)
}

func countEvents(st *memStore, certificationID, typ string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for _, e := range st.events {
		if e.CertificationID == certificationID && e.Type == typ {
			n++
		}
	}
	return n
}
