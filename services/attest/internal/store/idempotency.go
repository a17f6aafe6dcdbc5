package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetIdempotencyRecord(ctx context.Context, userID, idempotencyKey, endpoint string) (int, map[string]any, bool, error) {
	var status int
	var body []byte
	err := s.DB.QueryRow(ctx, `
SELECT response_status,response_body
FROM idempotency_records
WHERE user_id=$1 AND idempotency_key=$2 AND endpoint=$3
`, userID, idempotencyKey, endpoint).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("select idempotency record: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, nil, false, fmt.Errorf("decode idempotency body: %w", err)
	}
	return status, out, true, nil
}

func (s *Store) SaveIdempotencyRecord(ctx context.Context, userID, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error {
	b, err := json.Marshal(responseBody)
	if err != nil {
		return fmt.Errorf("marshal idempotency body: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO idempotency_records(user_id,idempotency_key,endpoint,response_status,response_body)
VALUES($1,$2,$3,$4,$5::jsonb)
ON CONFLICT (user_id,idempotency_key,endpoint) DO NOTHING
`, userID, idempotencyKey, endpoint, responseStatus, string(b))
	if err != nil {
		return fmt.Errorf("insert idempotency record: %w", err)
	}
	return nil
}
