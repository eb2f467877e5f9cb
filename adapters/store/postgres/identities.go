package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

// IdentityRepo implements ports.IdentityRepository on the shared pool.
type IdentityRepo struct {
	db *pgxpool.Pool
}

const identityColumns = `id, address, roles, active, ens_name, metadata, last_login, created_at, updated_at`

// Upsert creates the identity on first sight of the address. An existing row
// is returned untouched, so a concurrent first login cannot clobber roles
// assigned in between.
func (s *IdentityRepo) Upsert(ctx context.Context, identity *core.Identity) (*core.Identity, error) {
	const query = `
        INSERT INTO identities (id, address, roles, active, ens_name, metadata)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (address) DO UPDATE SET updated_at = now()
        RETURNING ` + identityColumns + `
    `

	row := s.db.QueryRow(ctx, query,
		identity.ID,
		identity.Address,
		rolesToStrings(identity.Roles),
		identity.Active,
		identity.ENSName,
		metadataOrEmpty(identity.Metadata),
	)

	stored, err := scanIdentity(row)
	if err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	return stored, nil
}

// ByAddress returns the identity for a canonical address.
func (s *IdentityRepo) ByAddress(ctx context.Context, address string) (*core.Identity, error) {
	const query = `SELECT ` + identityColumns + ` FROM identities WHERE address = $1`

	identity, err := scanIdentity(s.db.QueryRow(ctx, query, address))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("identity by address: %w", ports.ErrNotFound)
		}
		return nil, fmt.Errorf("identity by address: %w", err)
	}
	return identity, nil
}

// UpdateRoles replaces the role set and returns the updated record.
func (s *IdentityRepo) UpdateRoles(ctx context.Context, address string, roles []core.Role) (*core.Identity, error) {
	const query = `
        UPDATE identities
        SET roles = $2, updated_at = now()
        WHERE address = $1
        RETURNING ` + identityColumns + `
    `

	identity, err := scanIdentity(s.db.QueryRow(ctx, query, address, rolesToStrings(roles)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update roles: %w", ports.ErrNotFound)
		}
		return nil, fmt.Errorf("update roles: %w", err)
	}
	return identity, nil
}

// SetActive flips the active flag.
func (s *IdentityRepo) SetActive(ctx context.Context, address string, active bool) error {
	const query = `UPDATE identities SET active = $2, updated_at = now() WHERE address = $1`

	tag, err := s.db.Exec(ctx, query, address, active)
	if err != nil {
		return fmt.Errorf("set identity active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set identity active: %w", ports.ErrNotFound)
	}
	return nil
}

// SetLastLogin stamps the last successful authentication.
func (s *IdentityRepo) SetLastLogin(ctx context.Context, address string, at time.Time) error {
	const query = `UPDATE identities SET last_login = $2 WHERE address = $1`

	if _, err := s.db.Exec(ctx, query, address, at); err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

// List returns one page of identities, newest first, plus the total count.
func (s *IdentityRepo) List(ctx context.Context, offset, limit int) ([]*core.Identity, int64, error) {
	const query = `
        SELECT ` + identityColumns + `, count(*) OVER ()
        FROM identities
        ORDER BY created_at DESC
        OFFSET $1 LIMIT $2
    `

	rows, err := s.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var (
		identities []*core.Identity
		total      int64
	)
	for rows.Next() {
		identity, err := scanIdentityWithTotal(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("list identities: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}

	if len(identities) == 0 {
		// Page past the end; fetch the count separately.
		if err := s.db.QueryRow(ctx, `SELECT count(*) FROM identities`).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("list identities: %w", err)
		}
	}
	return identities, total, nil
}

// Count returns total and active identity counts.
func (s *IdentityRepo) Count(ctx context.Context) (int64, int64, error) {
	const query = `SELECT count(*), count(*) FILTER (WHERE active) FROM identities`

	var total, active int64
	if err := s.db.QueryRow(ctx, query).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count identities: %w", err)
	}
	return total, active, nil
}

// CountByRole returns the number of identities holding each role.
func (s *IdentityRepo) CountByRole(ctx context.Context) (map[core.Role]int64, error) {
	const query = `
        SELECT role, count(*)
        FROM identities, unnest(roles) AS role
        GROUP BY role
    `

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[core.Role]int64)
	for rows.Next() {
		var (
			role string
			n    int64
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("count by role: %w", err)
		}
		counts[core.Role(role)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}
	return counts, nil
}

func rolesToStrings(roles []core.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func scanIdentity(row rowScanner) (*core.Identity, error) {
	return scanIdentityWithTotal(row, nil)
}

func scanIdentityWithTotal(row rowScanner, total *int64) (*core.Identity, error) {
	var (
		identity  core.Identity
		roles     []string
		lastLogin *time.Time
	)

	dest := []any{
		&identity.ID,
		&identity.Address,
		&roles,
		&identity.Active,
		&identity.ENSName,
		&identity.Metadata,
		&lastLogin,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	identity.Roles = make([]core.Role, len(roles))
	for i, r := range roles {
		identity.Roles[i] = core.Role(r)
	}
	if lastLogin != nil {
		identity.LastLogin = *lastLogin
	}
	return &identity, nil
}
