package workflow

import (
	"context"
	"fmt"
	"sort"

	"certflow/pkg/domain"
)

// assertMutable rejects any mutation of assignments or responses once a
// certification is closed. Draft and open pass through.
func assertMutable(cert *domain.Certification) error {
	if cert.Status == domain.CertificationClosed {
		return &domain.ClosedCertificationError{CertificationID: cert.CertificationID}
	}
	return nil
}

// assertPublishable gates draft → open: at least one question must exist.
func assertPublishable(cert *domain.Certification) error {
	if len(cert.Questions) == 0 {
		return &domain.ValidationError{
			Msg:    "certification has no questions",
			Fields: map[string]string{"questions": "at least one question required before publishing"},
		}
	}
	return nil
}

// assertClosable gates open → closed: there must be assignments, and the set
// of assigned attesters must equal the set of submitted attesters. Set
// comparison, not counts, so duplicate or stale rows can never close a
// certification early.
func (s *Service) assertClosable(ctx context.Context, certificationID string) error {
	assignments, err := s.store.ListAssignments(ctx, certificationID)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return &domain.ValidationError{Msg: "certification has no assigned attesters"}
	}
	submitted, err := s.store.SubmittedAttesters(ctx, certificationID)
	if err != nil {
		return err
	}
	submittedSet := make(map[string]bool, len(submitted))
	for _, id := range submitted {
		submittedSet[id] = true
	}
	var pending []string
	for _, a := range assignments {
		if !submittedSet[a.AttesterID] {
			pending = append(pending, a.AttesterID)
		}
	}
	if len(pending) > 0 {
		sort.Strings(pending)
		fields := make(map[string]string, len(pending))
		for _, id := range pending {
			fields[id] = "no submitted response"
		}
		return &domain.ValidationError{
			Msg:    fmt.Sprintf("%d of %d attesters have not submitted", len(pending), len(assignments)),
			Fields: fields,
		}
	}
	return nil
}
