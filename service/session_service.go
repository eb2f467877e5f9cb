package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

const (
	sessionListPrefix = "session:"
	sessionListTTL    = 5 * time.Minute
)

// SessionService exposes per-user session management: listing active
// devices and revoking one or all of them.
type SessionService struct {
	sessions ports.SessionRepository
	cache    ports.Cache
	events   ports.EventPublisher
}

func NewSessionService(sessions ports.SessionRepository, cache ports.Cache, events ports.EventPublisher) *SessionService {
	return &SessionService{sessions: sessions, cache: cache, events: events}
}

// ActiveSessions lists the caller's live sessions, newest first. Results
// are cached briefly, so a session revoked elsewhere may linger in the
// list for up to the cache TTL; revocation through this service drops the
// cache immediately.
func (s *SessionService) ActiveSessions(ctx context.Context, address string) ([]*core.Session, error) {
	address = core.NormalizeAddress(address)
	key := sessionListPrefix + address

	if raw, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var cached []*core.Session
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		// Unreadable entry, fall through and rebuild it.
	}

	sessions, err := s.sessions.ActiveByAddress(ctx, address)
	if err != nil {
		return nil, core.InternalError("failed to list sessions", err)
	}

	if raw, err := json.Marshal(sessions); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), sessionListTTL); err != nil {
			logctx.From(ctx).Warn("failed to cache session list", "address", address, "err", err)
		}
	}
	return sessions, nil
}

// InvalidateSession revokes one session by id. The caller may only revoke
// sessions bound to their own address; revoking an already-dead or unknown
// session of their own is a no-op.
func (s *SessionService) InvalidateSession(ctx context.Context, address, sessionID string) error {
	address = core.NormalizeAddress(address)

	session, err := s.sessions.ByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return core.InternalError("failed to invalidate session", err)
	}
	if session.Address != address {
		return core.AuthorizationError("session does not belong to caller")
	}

	if err := s.sessions.Invalidate(ctx, sessionID); err != nil && !errors.Is(err, ports.ErrNotFound) {
		return core.InternalError("failed to invalidate session", err)
	}
	s.dropListCache(ctx, address)
	return nil
}

// InvalidateAll revokes every session for the address and announces it so
// other instances can drop any local state.
func (s *SessionService) InvalidateAll(ctx context.Context, address string) error {
	address = core.NormalizeAddress(address)

	if err := s.sessions.InvalidateAllForAddress(ctx, address); err != nil {
		return core.InternalError("failed to invalidate sessions", err)
	}
	s.dropListCache(ctx, address)

	if err := s.events.PublishSessionsInvalidated(ctx, address); err != nil {
		logctx.From(ctx).Warn("failed to publish bulk invalidation event", "address", address, "err", err)
	}
	return nil
}

func (s *SessionService) dropListCache(ctx context.Context, address string) {
	if err := s.cache.Delete(ctx, sessionListPrefix+address); err != nil {
		logctx.From(ctx).Warn("failed to drop session list cache", "address", address, "err", err)
	}
}
