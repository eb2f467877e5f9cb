package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ANAVHEOBA/dumzfun/core"
)

var (
	// ErrNotFound is returned when a record does not exist or is filtered
	// out (invalid or expired sessions are never returned).
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on a uniqueness violation.
	ErrAlreadyExists = errors.New("already exists")
)

// SessionRepository persists login sessions. It is the source of truth for
// session validity across instances. Lookup methods only ever return
// sessions that are valid and unexpired; background cleanup is an
// optimization, not a correctness requirement.
type SessionRepository interface {
	Create(ctx context.Context, session *core.Session) error

	// ByToken returns the active session carrying the access token.
	ByToken(ctx context.Context, token string) (*core.Session, error)

	// ByRefreshToken returns the active session carrying the refresh token.
	ByRefreshToken(ctx context.Context, refreshToken string) (*core.Session, error)

	// Rotate swaps both token values on an existing session and stamps
	// lastUsed. The record identity (id, createdAt) is preserved.
	Rotate(ctx context.Context, sessionID string, pair core.TokenPair, lastUsed time.Time) error

	// Invalidate marks one session invalid. Missing sessions return ErrNotFound.
	Invalidate(ctx context.Context, sessionID string) error

	// InvalidateAllForAddress marks every session of the address invalid.
	InvalidateAllForAddress(ctx context.Context, address string) error

	// ActiveByAddress lists the address's valid, unexpired sessions.
	ActiveByAddress(ctx context.Context, address string) ([]*core.Session, error)

	// ByID returns a session regardless of validity, for owner checks.
	ByID(ctx context.Context, sessionID string) (*core.Session, error)

	// Touch stamps lastUsed.
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// DeleteDefunct removes sessions that are invalid or expired at now,
	// returning how many were dropped.
	DeleteDefunct(ctx context.Context, now time.Time) (int64, error)

	// CountActive counts valid, unexpired sessions across all addresses.
	CountActive(ctx context.Context) (int64, error)
}

// IdentityRepository persists identities. The wallet address is the sole
// identity key; identities are deactivated, never deleted.
type IdentityRepository interface {
	// Upsert creates the identity on first sight of an address and returns
	// the stored record either way.
	Upsert(ctx context.Context, identity *core.Identity) (*core.Identity, error)

	ByAddress(ctx context.Context, address string) (*core.Identity, error)

	// UpdateRoles replaces the role set.
	UpdateRoles(ctx context.Context, address string, roles []core.Role) (*core.Identity, error)

	// SetActive flips the active flag.
	SetActive(ctx context.Context, address string, active bool) error

	// SetLastLogin stamps the last successful authentication.
	SetLastLogin(ctx context.Context, address string, at time.Time) error

	// List returns one page of identities plus the total count.
	List(ctx context.Context, offset, limit int) ([]*core.Identity, int64, error)

	// Count returns total and active identity counts.
	Count(ctx context.Context) (total, active int64, err error)

	// CountByRole returns the number of identities holding each role.
	CountByRole(ctx context.Context) (map[core.Role]int64, error)
}

// ProfileRepository persists profile records. One profile per address.
type ProfileRepository interface {
	Create(ctx context.Context, profile *core.Profile) error
	ByAddress(ctx context.Context, address string) (*core.Profile, error)
	Update(ctx context.Context, profile *core.Profile) error
	SetActive(ctx context.Context, address string, active bool) error
	Count(ctx context.Context) (int64, error)
}
