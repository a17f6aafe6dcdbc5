package workflow

import (
	"context"
	"sort"

	"certflow/pkg/domain"
)

type GroupProgress struct {
	GroupID     string `json:"group_id"`
	ReviewerID  string `json:"reviewer_id,omitempty"`
	TotalL1     int    `json:"total_l1"`
	SubmittedL1 int    `json:"submitted_l1"`
	Unlocked    bool   `json:"unlocked"`
}

type ProgressReport struct {
	CertificationID string          `json:"certification_id"`
	Status          string          `json:"status"`
	Assigned        int             `json:"assigned"`
	Submitted       int             `json:"submitted"`
	Groups          []GroupProgress `json:"groups,omitempty"`
}

// Progress summarizes submission state per certification and per review
// group. The unlocked flag here is derived the same way the unlock engine
// derives it: all level-1 members of the group submitted and a reviewer
// exists.
func (s *Service) Progress(ctx context.Context, actorID, certificationID string) (*ProgressReport, error) {
	cert, _, err := s.managedCertification(ctx, actorID, certificationID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignments(ctx, certificationID)
	if err != nil {
		return nil, err
	}
	submitted, err := s.store.SubmittedAttesters(ctx, certificationID)
	if err != nil {
		return nil, err
	}
	submittedSet := make(map[string]bool, len(submitted))
	for _, id := range submitted {
		submittedSet[id] = true
	}

	report := &ProgressReport{
		CertificationID: certificationID,
		Status:          string(cert.Status),
		Assigned:        len(assignments),
	}
	groups := map[string]*GroupProgress{}
	for _, a := range assignments {
		if submittedSet[a.AttesterID] {
			report.Submitted++
		}
		if a.GroupID == "" {
			continue
		}
		g, ok := groups[a.GroupID]
		if !ok {
			g = &GroupProgress{GroupID: a.GroupID}
			groups[a.GroupID] = g
		}
		switch a.Level {
		case domain.Level1:
			g.TotalL1++
			if submittedSet[a.AttesterID] {
				g.SubmittedL1++
			}
		case domain.Level2:
			g.ReviewerID = a.AttesterID
		}
	}
	for _, g := range groups {
		g.Unlocked = g.TotalL1 > 0 && g.SubmittedL1 == g.TotalL1 && g.ReviewerID != ""
		report.Groups = append(report.Groups, *g)
	}
	sort.Slice(report.Groups, func(i, j int) bool { return report.Groups[i].GroupID < report.Groups[j].GroupID })
	return report, nil
}
