package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"certflow/pkg/domain"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateCertification(ctx context.Context, c domain.Certification) error {
	qs, err := json.Marshal(c.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO certifications(certification_id,mandate_id,title,description,questions,deadline,status)
VALUES($1,$2,$3,$4,$5::jsonb,$6,$7)
`, c.CertificationID, c.MandateID, c.Title, c.Description, string(qs), c.Deadline, c.Status)
	if err != nil {
		return fmt.Errorf("insert certification: %w", err)
	}
	return nil
}

func (s *Store) GetCertification(ctx context.Context, id string) (*domain.Certification, error) {
	var c domain.Certification
	var qs []byte
	err := s.DB.QueryRow(ctx, `
SELECT certification_id,mandate_id,title,description,questions,deadline,status,published_at,closed_at,created_at,updated_at
FROM certifications WHERE certification_id=$1
`, id).Scan(&c.CertificationID, &c.MandateID, &c.Title, &c.Description, &qs,
		&c.Deadline, &c.Status, &c.PublishedAt, &c.ClosedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select certification: %w", err)
	}
	if len(qs) > 0 {
		if err := json.Unmarshal(qs, &c.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}
	return &c, nil
}

func (s *Store) UpdateCertificationDetails(ctx context.Context, id, title, description string) error {
	_, err := s.DB.Exec(ctx, `
UPDATE certifications SET title=$2, description=$3, updated_at=now() WHERE certification_id=$1
`, id, title, description)
	if err != nil {
		return fmt.Errorf("update certification details: %w", err)
	}
	return nil
}

func (s *Store) SetQuestions(ctx context.Context, id string, questions []domain.Question) error {
	b, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
UPDATE certifications SET questions=$2::jsonb, updated_at=now() WHERE certification_id=$1
`, id, string(b))
	if err != nil {
		return fmt.Errorf("update questions: %w", err)
	}
	return nil
}

func (s *Store) SetDeadline(ctx context.Context, id string, deadline time.Time) error {
	_, err := s.DB.Exec(ctx, `
UPDATE certifications SET deadline=$2, updated_at=now() WHERE certification_id=$1
`, id, deadline)
	if err != nil {
		return fmt.Errorf("update deadline: %w", err)
	}
	return nil
}

func (s *Store) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `
UPDATE certifications SET status=$2, published_at=$3, updated_at=now() WHERE certification_id=$1
`, id, domain.CertificationOpen, at)
	if err != nil {
		return fmt.Errorf("publish certification: %w", err)
	}
	return nil
}

func (s *Store) MarkClosed(ctx context.Context, id string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `
UPDATE certifications SET status=$2, closed_at=$3, updated_at=now() WHERE certification_id=$1
`, id, domain.CertificationClosed, at)
	if err != nil {
		return fmt.Errorf("close certification: %w", err)
	}
	return nil
}

// DeleteCertification removes the certification row; assignments, responses,
// and events go with it via ON DELETE CASCADE.
func (s *Store) DeleteCertification(ctx context.Context, id string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM certifications WHERE certification_id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete certification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
