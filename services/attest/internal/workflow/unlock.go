package workflow

import (
	"context"

	"certflow/pkg/domain"
)

// UnlockStore is what the level-unlock computation reads. It is deliberately
// narrow so the check stays a pure function of persisted state.
type UnlockStore interface {
	GetAssignment(ctx context.Context, certificationID, attesterID string) (*domain.Assignment, error)
	GroupLevel1Counts(ctx context.Context, certificationID, groupID string) (total, submitted int, err error)
	GroupReviewer(ctx context.Context, certificationID, groupID string) (*domain.Assignment, error)
}

type UnlockResult struct {
	ShouldUnlock bool   `json:"should_unlock"`
	L2AttesterID string `json:"l2_attester_id,omitempty"`
	GroupID      string `json:"group_id,omitempty"`
}

// CheckLevelUnlock decides whether the submitter's group has fully submitted
// and therefore unlocks its level-2 reviewer. It recomputes from persisted
// state on every call: no unlocked flag is cached, so calling it again after
// the group is complete yields the same true result. A standalone level-1
// attester, or a level-2 reviewer's own submission, never unlocks anything.
func CheckLevelUnlock(ctx context.Context, st UnlockStore, certificationID, submittedAttesterID string) (UnlockResult, error) {
	a, err := st.GetAssignment(ctx, certificationID, submittedAttesterID)
	if err != nil {
		return UnlockResult{}, err
	}
	if a == nil || a.Level != domain.Level1 || a.GroupID == "" {
		return UnlockResult{}, nil
	}
	total, submitted, err := st.GroupLevel1Counts(ctx, certificationID, a.GroupID)
	if err != nil {
		return UnlockResult{}, err
	}
	if total == 0 || submitted < total {
		return UnlockResult{}, nil
	}
	reviewer, err := st.GroupReviewer(ctx, certificationID, a.GroupID)
	if err != nil {
		return UnlockResult{}, err
	}
	if reviewer == nil {
		return UnlockResult{}, nil
	}
	return UnlockResult{ShouldUnlock: true, L2AttesterID: reviewer.AttesterID, GroupID: a.GroupID}, nil
}
