package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"certflow/pkg/domain"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetResponse(ctx context.Context, certificationID, attesterID string) (*domain.Response, error) {
	var r domain.Response
	var answers []byte
	err := s.DB.QueryRow(ctx, `
SELECT certification_id,attester_id,answers,status,last_saved_at,submitted_at
FROM responses WHERE certification_id=$1 AND attester_id=$2
`, certificationID, attesterID).Scan(&r.CertificationID, &r.AttesterID, &answers, &r.Status, &r.LastSavedAt, &r.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select response: %w", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return &r, nil
}

// SaveResponse upserts an in-progress response. The WHERE clause on the
// conflict update keeps a submitted row untouched even under a concurrent
// retry; zero rows affected means the response was already submitted.
func (s *Store) SaveResponse(ctx context.Context, certificationID, attesterID string, answers []domain.Answer) (*domain.Response, error) {
	b, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	var r domain.Response
	var raw []byte
	err = s.DB.QueryRow(ctx, `
INSERT INTO responses(certification_id,attester_id,answers,status,last_saved_at)
VALUES($1,$2,$3::jsonb,$4,now())
ON CONFLICT (certification_id,attester_id) DO UPDATE SET
  answers=EXCLUDED.answers,
  status=EXCLUDED.status,
  last_saved_at=now()
WHERE responses.status<>$5
RETURNING certification_id,attester_id,answers,status,last_saved_at,submitted_at
`, certificationID, attesterID, string(b), domain.ResponseInProgress, domain.ResponseSubmitted).
		Scan(&r.CertificationID, &r.AttesterID, &raw, &r.Status, &r.LastSavedAt, &r.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ConflictError{Msg: "response already submitted"}
	}
	if err != nil {
		return nil, fmt.Errorf("upsert response: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return &r, nil
}

// SubmitResponse upserts with status SUBMITTED and fixes submitted_at. Like
// SaveResponse, a previously submitted row is never rewritten; the write-once
// invariant holds at the database even if two submits race.
func (s *Store) SubmitResponse(ctx context.Context, certificationID, attesterID string, answers []domain.Answer) (*domain.Response, error) {
	b, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	var r domain.Response
	var raw []byte
	err = s.DB.QueryRow(ctx, `
INSERT INTO responses(certification_id,attester_id,answers,status,last_saved_at,submitted_at)
VALUES($1,$2,$3::jsonb,$4,now(),now())
ON CONFLICT (certification_id,attester_id) DO UPDATE SET
  answers=EXCLUDED.answers,
  status=EXCLUDED.status,
  last_saved_at=now(),
  submitted_at=now()
WHERE responses.status<>$4
RETURNING certification_id,attester_id,answers,status,last_saved_at,submitted_at
`, certificationID, attesterID, string(b), domain.ResponseSubmitted).
		Scan(&r.CertificationID, &r.AttesterID, &raw, &r.Status, &r.LastSavedAt, &r.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ConflictError{Msg: "response already submitted"}
	}
	if err != nil {
		return nil, fmt.Errorf("submit response: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &r.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	return &r, nil
}

// SubmittedAttesters returns the distinct attester ids with a submitted
// response; the close guard compares this as a set against the assigned set.
func (s *Store) SubmittedAttesters(ctx context.Context, certificationID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
SELECT DISTINCT attester_id FROM responses
WHERE certification_id=$1 AND status=$2
`, certificationID, domain.ResponseSubmitted)
	if err != nil {
		return nil, fmt.Errorf("select submitted attesters: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attester id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
