package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"certflow/pkg/eventhash"
)

// AddEvent appends to the certification audit log. The payload hash makes
// later tamper checks possible without re-reading jsonb field order.
func (s *Store) AddEvent(ctx context.Context, certificationID, typ, actorID string, payload map[string]any) error {
	hash, b, err := eventhash.Sum(payload)
	if err != nil {
		return fmt.Errorf("hash event payload: %w", err)
	}
	_, err = s.DB.Exec(ctx, `
INSERT INTO certification_events(certification_id,type,actor_id,payload,payload_hash)
VALUES($1,$2,$3,$4::jsonb,$5)
`, certificationID, typ, actorID, string(b), hash)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

type Event struct {
	Type        string    `json:"type"`
	ActorID     string    `json:"actor_id"`
	Payload     any       `json:"payload"`
	PayloadHash string    `json:"payload_hash"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (s *Store) ListEvents(ctx context.Context, certificationID string) ([]Event, error) {
	rows, err := s.DB.Query(ctx, `
SELECT type,actor_id,payload,payload_hash,occurred_at
FROM certification_events WHERE certification_id=$1
ORDER BY occurred_at ASC, event_id ASC
`, certificationID)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var payload []byte
		if err := rows.Scan(&e.Type, &e.ActorID, &payload, &e.PayloadHash, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		_ = json.Unmarshal(payload, &e.Payload)
		out = append(out, e)
	}
	return out, rows.Err()
}
