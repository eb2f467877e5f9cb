package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

// ProfileRepo implements ports.ProfileRepository on the shared pool.
type ProfileRepo struct {
	db *pgxpool.Pool
}

const profileColumns = `address, username, bio, avatar_url, metadata, ledger_tx_id, active, created_at, updated_at`

// Create inserts a new profile. A second profile for the same address
// surfaces as ErrAlreadyExists.
func (s *ProfileRepo) Create(ctx context.Context, profile *core.Profile) error {
	const query = `
        INSERT INTO profiles (address, username, bio, avatar_url, metadata, ledger_tx_id, active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := s.db.Exec(ctx, query,
		profile.Address,
		profile.Username,
		profile.Bio,
		profile.AvatarURL,
		metadataOrEmpty(profile.Metadata),
		profile.LedgerTxID,
		profile.Active,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("create profile: %w", ports.ErrAlreadyExists)
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// ByAddress returns the profile for an address.
func (s *ProfileRepo) ByAddress(ctx context.Context, address string) (*core.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE address = $1`

	var profile core.Profile
	err := s.db.QueryRow(ctx, query, address).Scan(
		&profile.Address,
		&profile.Username,
		&profile.Bio,
		&profile.AvatarURL,
		&profile.Metadata,
		&profile.LedgerTxID,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile by address: %w", ports.ErrNotFound)
		}
		return nil, fmt.Errorf("profile by address: %w", err)
	}
	return &profile, nil
}

// Update rewrites the mutable profile fields.
func (s *ProfileRepo) Update(ctx context.Context, profile *core.Profile) error {
	const query = `
        UPDATE profiles
        SET username = $2, bio = $3, avatar_url = $4, metadata = $5, ledger_tx_id = $6, updated_at = now()
        WHERE address = $1
    `

	tag, err := s.db.Exec(ctx, query,
		profile.Address,
		profile.Username,
		profile.Bio,
		profile.AvatarURL,
		metadataOrEmpty(profile.Metadata),
		profile.LedgerTxID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update profile: %w", ports.ErrNotFound)
	}
	return nil
}

// SetActive flips the active flag; delete is deactivation.
func (s *ProfileRepo) SetActive(ctx context.Context, address string, active bool) error {
	const query = `UPDATE profiles SET active = $2, updated_at = now() WHERE address = $1`

	tag, err := s.db.Exec(ctx, query, address, active)
	if err != nil {
		return fmt.Errorf("set profile active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set profile active: %w", ports.ErrNotFound)
	}
	return nil
}

// Count counts all profiles.
func (s *ProfileRepo) Count(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM profiles`

	var n int64
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}
