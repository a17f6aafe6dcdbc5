package workflow

import (
	"context"
	"fmt"

	"certflow/pkg/domain"
)

// AssignmentEntry is one user in a replace-assignments request. GroupID is
// required for level-2 entries and for level-1 entries whenever any level-2
// reviewer is present.
type AssignmentEntry struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id,omitempty"`
}

// ReplaceAssignments swaps the whole assignment set for a certification.
// The operation is intentionally non-incremental: every existing row is
// deleted and the new set inserted in one transaction, so a failed call
// leaves the prior assignments untouched. Newly assigned level-1 attesters
// get a certification_assigned notification; level-2 reviewers are notified
// only by the unlock engine.
func (s *Service) ReplaceAssignments(ctx context.Context, actorID, certificationID string, l1, l2 []AssignmentEntry) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	if err := assertMutable(cert); err != nil {
		return err
	}
	next, err := buildAssignmentSet(certificationID, l1, l2)
	if err != nil {
		return err
	}

	prior, err := s.store.ReplaceAssignments(ctx, certificationID, next)
	if err != nil {
		return err
	}

	s.record(ctx, certificationID, "ASSIGNMENTS_REPLACED", actorID, map[string]any{
		"level1_count": len(l1),
		"level2_count": len(l2),
	})

	wasAssigned := make(map[string]bool, len(prior))
	for _, a := range prior {
		wasAssigned[a.AttesterID] = true
	}
	for _, a := range next {
		if a.Level != domain.Level1 || wasAssigned[a.AttesterID] {
			continue
		}
		s.enqueue(ctx, domain.Notification{
			RecipientUserID: a.AttesterID,
			Type:            domain.NotifyCertificationAssigned,
			Title:           "New certification assigned",
			Message:         fmt.Sprintf("You have been assigned to attest %q.", cert.Title),
			Link:            s.certificationLink(certificationID),
		})
	}
	return nil
}

// buildAssignmentSet validates the request shape and flattens it into
// assignment rows. Orphan level-1 users, whose group id no level-2 entry
// claims, are rejected by name.
func buildAssignmentSet(certificationID string, l1, l2 []AssignmentEntry) ([]domain.Assignment, error) {
	fields := map[string]string{}
	if len(l1) == 0 {
		return nil, &domain.ValidationError{
			Msg:    "at least one level-1 attester is required",
			Fields: map[string]string{"level1": "must not be empty"},
		}
	}

	groups := map[string]string{} // group id -> level-2 user
	inL2 := map[string]bool{}
	for _, e := range l2 {
		if e.UserID == "" {
			fields["level2"] = "entry with empty user id"
			continue
		}
		if inL2[e.UserID] {
			fields[e.UserID] = "duplicate level-2 entry"
			continue
		}
		inL2[e.UserID] = true
		if e.GroupID == "" {
			fields[e.UserID] = "level-2 entry requires a group id"
			continue
		}
		if _, taken := groups[e.GroupID]; taken {
			fields[e.UserID] = fmt.Sprintf("group %q already has a reviewer", e.GroupID)
			continue
		}
		groups[e.GroupID] = e.UserID
	}

	inL1 := map[string]bool{}
	for _, e := range l1 {
		if e.UserID == "" {
			fields["level1"] = "entry with empty user id"
			continue
		}
		if inL1[e.UserID] {
			fields[e.UserID] = "duplicate level-1 entry"
			continue
		}
		inL1[e.UserID] = true
		if inL2[e.UserID] {
			fields[e.UserID] = "user appears at both levels"
			continue
		}
		if len(l2) > 0 {
			if e.GroupID == "" {
				fields[e.UserID] = "level-1 entry requires a group id when reviewers are present"
				continue
			}
			if _, claimed := groups[e.GroupID]; !claimed {
				fields[e.UserID] = fmt.Sprintf("group %q has no level-2 reviewer", e.GroupID)
			}
		} else if e.GroupID != "" {
			fields[e.UserID] = fmt.Sprintf("group %q has no level-2 reviewer", e.GroupID)
		}
	}

	if len(fields) > 0 {
		return nil, &domain.ValidationError{Msg: "invalid assignment set", Fields: fields}
	}

	next := make([]domain.Assignment, 0, len(l1)+len(l2))
	for _, e := range l1 {
		next = append(next, domain.Assignment{
			CertificationID: certificationID,
			AttesterID:      e.UserID,
			Level:           domain.Level1,
			GroupID:         e.GroupID,
		})
	}
	for _, e := range l2 {
		next = append(next, domain.Assignment{
			CertificationID: certificationID,
			AttesterID:      e.UserID,
			Level:           domain.Level2,
			GroupID:         e.GroupID,
		})
	}
	return next, nil
}

// Unassign removes a single attester while the certification is still
// mutable.
func (s *Service) Unassign(ctx context.Context, actorID, certificationID, attesterID string) error {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return err
	}
	if err := assertMutable(cert); err != nil {
		return err
	}
	ok, err := s.store.DeleteAssignment(ctx, certificationID, attesterID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.NotFoundError{Kind: "assignment", ID: attesterID}
	}
	s.record(ctx, certificationID, "ATTESTER_UNASSIGNED", actorID, map[string]any{"attester_id": attesterID})
	return nil
}

// Assignments lists the current assignment set for a certification.
func (s *Service) Assignments(ctx context.Context, actorID, certificationID string) ([]domain.Assignment, error) {
	if _, _, err := s.managedCertification(ctx, actorID, certificationID); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, certificationID)
}
