package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

// SessionRepo implements ports.SessionRepository on the shared pool.
type SessionRepo struct {
	db *pgxpool.Pool
}

const sessionColumns = `id, address, token, refresh_token, is_valid, expires_at, last_used, created_at, user_agent, ip_address, device`

// Create inserts a new session. A zero expiry gets the default lifetime.
func (s *SessionRepo) Create(ctx context.Context, session *core.Session) error {
	const query = `
        INSERT INTO sessions (` + sessionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().Add(core.DefaultSessionTTL)
	}

	_, err := s.db.Exec(ctx, query,
		session.ID,
		session.Address,
		session.Token,
		session.RefreshToken,
		session.IsValid,
		session.ExpiresAt,
		session.LastUsed,
		session.CreatedAt,
		session.DeviceInfo.UserAgent,
		session.DeviceInfo.IPAddress,
		session.DeviceInfo.Device,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("create session: %w", ports.ErrAlreadyExists)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// ByToken returns the valid, unexpired session carrying the access token.
func (s *SessionRepo) ByToken(ctx context.Context, token string) (*core.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM sessions
        WHERE token = $1 AND is_valid AND expires_at > now()
    `
	return s.scanSession(s.db.QueryRow(ctx, query, token), "session by token")
}

// ByRefreshToken returns the valid, unexpired session carrying the refresh token.
func (s *SessionRepo) ByRefreshToken(ctx context.Context, refreshToken string) (*core.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM sessions
        WHERE refresh_token = $1 AND is_valid AND expires_at > now()
    `
	return s.scanSession(s.db.QueryRow(ctx, query, refreshToken), "session by refresh token")
}

// ByID returns a session regardless of validity.
func (s *SessionRepo) ByID(ctx context.Context, sessionID string) (*core.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM sessions
        WHERE id = $1
    `
	return s.scanSession(s.db.QueryRow(ctx, query, sessionID), "session by id")
}

// Rotate swaps both token values on the same row and stamps last_used.
// created_at is untouched so the session keeps its identity across refreshes.
func (s *SessionRepo) Rotate(ctx context.Context, sessionID string, pair core.TokenPair, lastUsed time.Time) error {
	const query = `
        UPDATE sessions
        SET token = $2, refresh_token = $3, last_used = $4
        WHERE id = $1
    `

	tag, err := s.db.Exec(ctx, query, sessionID, pair.AccessToken, pair.RefreshToken, lastUsed)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rotate session: %w", ports.ErrNotFound)
	}
	return nil
}

// Invalidate marks one session invalid.
func (s *SessionRepo) Invalidate(ctx context.Context, sessionID string) error {
	const query = `UPDATE sessions SET is_valid = FALSE WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invalidate session: %w", ports.ErrNotFound)
	}
	return nil
}

// InvalidateAllForAddress marks every session of the address invalid.
func (s *SessionRepo) InvalidateAllForAddress(ctx context.Context, address string) error {
	const query = `UPDATE sessions SET is_valid = FALSE WHERE address = $1 AND is_valid`

	if _, err := s.db.Exec(ctx, query, address); err != nil {
		return fmt.Errorf("invalidate sessions for address: %w", err)
	}
	return nil
}

// ActiveByAddress lists the address's valid, unexpired sessions, most
// recently used first.
func (s *SessionRepo) ActiveByAddress(ctx context.Context, address string) ([]*core.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM sessions
        WHERE address = $1 AND is_valid AND expires_at > now()
        ORDER BY last_used DESC
    `

	rows, err := s.db.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*core.Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("active sessions: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	return sessions, nil
}

// Touch stamps last_used.
func (s *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE sessions SET last_used = $2 WHERE id = $1`

	if _, err := s.db.Exec(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// DeleteDefunct removes invalid or expired sessions. Best-effort cleanup;
// lookups already filter.
func (s *SessionRepo) DeleteDefunct(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE NOT is_valid OR expires_at <= $1`

	tag, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete defunct sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountActive counts valid, unexpired sessions.
func (s *SessionRepo) CountActive(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM sessions WHERE is_valid AND expires_at > now()`

	var n int64
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SessionRepo) scanSession(row pgx.Row, op string) (*core.Session, error) {
	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func scanSessionRow(row rowScanner) (*core.Session, error) {
	var session core.Session
	err := row.Scan(
		&session.ID,
		&session.Address,
		&session.Token,
		&session.RefreshToken,
		&session.IsValid,
		&session.ExpiresAt,
		&session.LastUsed,
		&session.CreatedAt,
		&session.DeviceInfo.UserAgent,
		&session.DeviceInfo.IPAddress,
		&session.DeviceInfo.Device,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
