package store

import (
	"context"
	"errors"
	"fmt"

	"certflow/pkg/domain"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMandate(ctx context.Context, m domain.Mandate) error {
	_, err := s.DB.Exec(ctx, `
INSERT INTO mandates(mandate_id,title,owner_id,backup_owner_id,status)
VALUES($1,$2,$3,NULLIF($4,''),$5)
`, m.MandateID, m.Title, m.OwnerID, m.BackupOwnerID, m.Status)
	if err != nil {
		return fmt.Errorf("insert mandate: %w", err)
	}
	return nil
}

func (s *Store) GetMandate(ctx context.Context, id string) (*domain.Mandate, error) {
	var m domain.Mandate
	var backup *string
	err := s.DB.QueryRow(ctx, `
SELECT mandate_id,title,owner_id,backup_owner_id,status,created_at
FROM mandates WHERE mandate_id=$1
`, id).Scan(&m.MandateID, &m.Title, &m.OwnerID, &backup, &m.Status, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select mandate: %w", err)
	}
	if backup != nil {
		m.BackupOwnerID = *backup
	}
	return &m, nil
}

func (s *Store) UpdateMandateOwners(ctx context.Context, id, ownerID, backupOwnerID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
UPDATE mandates SET owner_id=$2, backup_owner_id=NULLIF($3,''), updated_at=now()
WHERE mandate_id=$1
`, id, ownerID, backupOwnerID)
	if err != nil {
		return false, fmt.Errorf("update mandate owners: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) SetMandateStatus(ctx context.Context, id string, status domain.MandateStatus) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
UPDATE mandates SET status=$2, updated_at=now() WHERE mandate_id=$1
`, id, status)
	if err != nil {
		return false, fmt.Errorf("update mandate status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
