package store

import (
	"context"
	"errors"
	"fmt"

	"certflow/pkg/domain"

	"github.com/jackc/pgx/v5"
)

func (s *Store) ListAssignments(ctx context.Context, certificationID string) ([]domain.Assignment, error) {
	rows, err := s.DB.Query(ctx, `
SELECT certification_id,attester_id,level,COALESCE(group_id,''),created_at
FROM assignments WHERE certification_id=$1
ORDER BY level, attester_id
`, certificationID)
	if err != nil {
		return nil, fmt.Errorf("select assignments: %w", err)
	}
	defer rows.Close()
	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.CertificationID, &a.AttesterID, &a.Level, &a.GroupID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAssignment(ctx context.Context, certificationID, attesterID string) (*domain.Assignment, error) {
	var a domain.Assignment
	err := s.DB.QueryRow(ctx, `
SELECT certification_id,attester_id,level,COALESCE(group_id,''),created_at
FROM assignments WHERE certification_id=$1 AND attester_id=$2
`, certificationID, attesterID).Scan(&a.CertificationID, &a.AttesterID, &a.Level, &a.GroupID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select assignment: %w", err)
	}
	return &a, nil
}

// ReplaceAssignments swaps the full assignment set for a certification in one
// transaction and returns the prior set, so the caller can diff for
// newly-assigned users. On any failure the prior rows stay in place.
func (s *Store) ReplaceAssignments(ctx context.Context, certificationID string, next []domain.Assignment) ([]domain.Assignment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
SELECT certification_id,attester_id,level,COALESCE(group_id,''),created_at
FROM assignments WHERE certification_id=$1 FOR UPDATE
`, certificationID)
	if err != nil {
		return nil, fmt.Errorf("select prior assignments: %w", err)
	}
	var prior []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.CertificationID, &a.AttesterID, &a.Level, &a.GroupID, &a.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan prior assignment: %w", err)
		}
		prior = append(prior, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prior assignments: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM assignments WHERE certification_id=$1`, certificationID); err != nil {
		return nil, fmt.Errorf("delete assignments: %w", err)
	}
	for _, a := range next {
		_, err := tx.Exec(ctx, `
INSERT INTO assignments(certification_id,attester_id,level,group_id)
VALUES($1,$2,$3,NULLIF($4,''))
`, certificationID, a.AttesterID, a.Level, a.GroupID)
		if err != nil {
			return nil, fmt.Errorf("insert assignment %s: %w", a.AttesterID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return prior, nil
}

func (s *Store) DeleteAssignment(ctx context.Context, certificationID, attesterID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
DELETE FROM assignments WHERE certification_id=$1 AND attester_id=$2
`, certificationID, attesterID)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GroupLevel1Counts returns how many level-1 assignments share a group and
// how many of those attesters have a submitted response. Recomputed fresh on
// every call; no unlocked flag is cached anywhere.
func (s *Store) GroupLevel1Counts(ctx context.Context, certificationID, groupID string) (total, submitted int, err error) {
	err = s.DB.QueryRow(ctx, `
SELECT COUNT(*),
       COUNT(r.attester_id)
FROM assignments a
LEFT JOIN responses r
  ON r.certification_id=a.certification_id
 AND r.attester_id=a.attester_id
 AND r.status=$3
WHERE a.certification_id=$1 AND a.group_id=$2 AND a.level=1
`, certificationID, groupID, domain.ResponseSubmitted).Scan(&total, &submitted)
	if err != nil {
		return 0, 0, fmt.Errorf("count group level-1: %w", err)
	}
	return total, submitted, nil
}

func (s *Store) GroupReviewer(ctx context.Context, certificationID, groupID string) (*domain.Assignment, error) {
	var a domain.Assignment
	err := s.DB.QueryRow(ctx, `
SELECT certification_id,attester_id,level,COALESCE(group_id,''),created_at
FROM assignments WHERE certification_id=$1 AND group_id=$2 AND level=2
`, certificationID, groupID).Scan(&a.CertificationID, &a.AttesterID, &a.Level, &a.GroupID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select group reviewer: %w", err)
	}
	return &a, nil
}
