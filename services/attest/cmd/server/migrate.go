package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup. Every statement is idempotent, so repeated
// boots against the same database are safe.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id    text PRIMARY KEY,
	role       text NOT NULL DEFAULT 'USER',
	status     text NOT NULL DEFAULT 'ACTIVE',
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_credentials (
	token_hash text PRIMARY KEY,
	user_id    text NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	revoked_at timestamptz,
	created_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mandates (
	mandate_id      text PRIMARY KEY,
	title           text NOT NULL,
	owner_id        text NOT NULL,
	backup_owner_id text,
	status          text NOT NULL DEFAULT 'OPEN',
	created_at      timestamptz NOT NULL DEFAULT now(),
	updated_at      timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS certifications (
	certification_id text PRIMARY KEY,
	mandate_id       text NOT NULL REFERENCES mandates(mandate_id) ON DELETE CASCADE,
	title            text NOT NULL,
	description      text NOT NULL DEFAULT '',
	questions        jsonb NOT NULL DEFAULT '[]',
	deadline         timestamptz,
	status           text NOT NULL DEFAULT 'DRAFT',
	published_at     timestamptz,
	closed_at        timestamptz,
	created_at       timestamptz NOT NULL DEFAULT now(),
	updated_at       timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assignments (
	certification_id text NOT NULL REFERENCES certifications(certification_id) ON DELETE CASCADE,
	attester_id      text NOT NULL,
	level            int  NOT NULL CHECK (level IN (1, 2)),
	group_id         text,
	created_at       timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (certification_id, attester_id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_group
	ON assignments (certification_id, group_id);

CREATE TABLE IF NOT EXISTS responses (
	certification_id text NOT NULL REFERENCES certifications(certification_id) ON DELETE CASCADE,
	attester_id      text NOT NULL,
	answers          jsonb NOT NULL DEFAULT '[]',
	status           text NOT NULL DEFAULT 'IN_PROGRESS',
	last_saved_at    timestamptz NOT NULL DEFAULT now(),
	submitted_at     timestamptz,
	PRIMARY KEY (certification_id, attester_id)
);

CREATE TABLE IF NOT EXISTS certification_events (
	event_id         bigserial PRIMARY KEY,
	certification_id text NOT NULL,
	type             text NOT NULL,
	actor_id         text NOT NULL,
	payload          jsonb NOT NULL DEFAULT '{}',
	payload_hash     text NOT NULL,
	occurred_at      timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_events_certification
	ON certification_events (certification_id, occurred_at);

CREATE TABLE IF NOT EXISTS idempotency_records (
	user_id         text NOT NULL,
	idempotency_key text NOT NULL,
	endpoint        text NOT NULL,
	response_status int  NOT NULL,
	response_body   jsonb NOT NULL,
	created_at      timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, idempotency_key, endpoint)
);
`

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
