// Package postgres implements the repository ports on a pgx connection
// pool. Sessions live here because Postgres is the one store every process
// instance shares; lookups always filter on validity and expiry so the
// hourly sweep is never load-bearing.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ANAVHEOBA/dumzfun/ports"
)

// Store holds the shared connection pool behind every repository.
type Store struct {
	db *pgxpool.Pool
}

// Sessions returns the session repository view of the store.
func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{db: s.db}
}

// Identities returns the identity repository view of the store.
func (s *Store) Identities() *IdentityRepo {
	return &IdentityRepo{db: s.db}
}

// Profiles returns the profile repository view of the store.
func (s *Store) Profiles() *ProfileRepo {
	return &ProfileRepo{db: s.db}
}

// New connects to Postgres and pings it fail-fast.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS identities (
    id          UUID PRIMARY KEY,
    address     TEXT NOT NULL UNIQUE,
    roles       TEXT[] NOT NULL,
    active      BOOLEAN NOT NULL DEFAULT TRUE,
    ens_name    TEXT NOT NULL DEFAULT '',
    metadata    JSONB NOT NULL DEFAULT '{}',
    last_login  TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
    id            UUID PRIMARY KEY,
    address       TEXT NOT NULL,
    token         TEXT NOT NULL UNIQUE,
    refresh_token TEXT NOT NULL UNIQUE,
    is_valid      BOOLEAN NOT NULL DEFAULT TRUE,
    expires_at    TIMESTAMPTZ NOT NULL,
    last_used     TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    user_agent    TEXT NOT NULL DEFAULT '',
    ip_address    TEXT NOT NULL DEFAULT '',
    device        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS sessions_address_valid_idx ON sessions (address, is_valid);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);

CREATE TABLE IF NOT EXISTS profiles (
    address      TEXT PRIMARY KEY,
    username     TEXT NOT NULL,
    bio          TEXT NOT NULL DEFAULT '',
    avatar_url   TEXT NOT NULL DEFAULT '',
    metadata     JSONB NOT NULL DEFAULT '{}',
    ledger_tx_id TEXT NOT NULL DEFAULT '',
    active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Interface conformance checks.
var (
	_ ports.SessionRepository  = (*SessionRepo)(nil)
	_ ports.IdentityRepository = (*IdentityRepo)(nil)
	_ ports.ProfileRepository  = (*ProfileRepo)(nil)
)

// Close releases the pool.
func (s *Store) Close() {
	s.db.Close()
}
