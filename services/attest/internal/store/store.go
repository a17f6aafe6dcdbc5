// Package store is the Postgres persistence layer for the attest service.
// Uniqueness of (certification_id, attester_id) in assignments and responses
// is enforced by table constraints, not application logic; multi-row
// mutations run inside a single transaction.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }
