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
	adminStatsKey = "admin:stats"
	adminStatsTTL = 5 * time.Minute

	defaultPageSize = 20
	maxPageSize     = 100
)

// UserPage is one page of the identity listing.
type UserPage struct {
	Users  []*core.Identity
	Total  int64
	Offset int
	Limit  int
}

// AdminService backs the administrative surface: user listing, role
// management, account toggles and aggregate stats.
type AdminService struct {
	identities ports.IdentityRepository
	profiles   ports.ProfileRepository
	sessions   *SessionService
	counter    ports.SessionRepository
	cache      ports.Cache
}

func NewAdminService(
	identities ports.IdentityRepository,
	profiles ports.ProfileRepository,
	sessions *SessionService,
	counter ports.SessionRepository,
	cache ports.Cache,
) *AdminService {
	return &AdminService{
		identities: identities,
		profiles:   profiles,
		sessions:   sessions,
		counter:    counter,
		cache:      cache,
	}
}

// ListUsers pages through identities ordered by creation time. Limits are
// clamped to [1, maxPageSize]; a negative offset reads from the start.
func (s *AdminService) ListUsers(ctx context.Context, offset, limit int) (*UserPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.identities.List(ctx, offset, limit)
	if err != nil {
		return nil, core.InternalError("failed to list users", err)
	}
	return &UserPage{Users: users, Total: total, Offset: offset, Limit: limit}, nil
}

// UpdateRoles replaces the role set of an identity. At least one role is
// required and each must be a known role name.
func (s *AdminService) UpdateRoles(ctx context.Context, address string, roles []core.Role) (*core.Identity, error) {
	address = core.NormalizeAddress(address)
	if len(roles) == 0 {
		return nil, core.ValidationError("at least one role is required")
	}
	for _, r := range roles {
		if !core.ValidRole(r) {
			return nil, core.ValidationError("unknown role: " + string(r))
		}
	}

	identity, err := s.identities.UpdateRoles(ctx, address, roles)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, core.NotFoundError("user not found")
		}
		return nil, core.InternalError("failed to update roles", err)
	}

	s.dropStatsCache(ctx)
	return identity, nil
}

// Deactivate disables an account and revokes all of its sessions, so the
// lockout takes effect on the next request rather than at token expiry.
func (s *AdminService) Deactivate(ctx context.Context, address string) error {
	address = core.NormalizeAddress(address)

	if err := s.identities.SetActive(ctx, address, false); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return core.NotFoundError("user not found")
		}
		return core.InternalError("failed to deactivate user", err)
	}

	if err := s.sessions.InvalidateAll(ctx, address); err != nil {
		return err
	}

	s.dropStatsCache(ctx)
	return nil
}

// Reactivate re-enables an account. The user still has to authenticate
// again; old sessions stay revoked.
func (s *AdminService) Reactivate(ctx context.Context, address string) error {
	address = core.NormalizeAddress(address)

	if err := s.identities.SetActive(ctx, address, true); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return core.NotFoundError("user not found")
		}
		return core.InternalError("failed to reactivate user", err)
	}

	s.dropStatsCache(ctx)
	return nil
}

// InvalidateUserSessions force-revokes every session of an address without
// touching the account itself.
func (s *AdminService) InvalidateUserSessions(ctx context.Context, address string) error {
	return s.sessions.InvalidateAll(ctx, address)
}

// Stats aggregates platform counters. The snapshot is cached, so numbers
// may trail reality by up to the cache TTL; GeneratedAt says how stale.
func (s *AdminService) Stats(ctx context.Context) (*core.Stats, error) {
	if raw, ok, err := s.cache.Get(ctx, adminStatsKey); err == nil && ok {
		var cached core.Stats
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	total, active, err := s.identities.Count(ctx)
	if err != nil {
		return nil, core.InternalError("failed to compute stats", err)
	}
	byRole, err := s.identities.CountByRole(ctx)
	if err != nil {
		return nil, core.InternalError("failed to compute stats", err)
	}
	activeSessions, err := s.counter.CountActive(ctx)
	if err != nil {
		return nil, core.InternalError("failed to compute stats", err)
	}
	totalProfiles, err := s.profiles.Count(ctx)
	if err != nil {
		return nil, core.InternalError("failed to compute stats", err)
	}

	stats := &core.Stats{
		TotalIdentities:  total,
		ActiveIdentities: active,
		ActiveSessions:   activeSessions,
		TotalProfiles:    totalProfiles,
		IdentitiesByRole: byRole,
		GeneratedAt:      time.Now(),
	}

	if raw, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, adminStatsKey, string(raw), adminStatsTTL); err != nil {
			logctx.From(ctx).Warn("failed to cache stats", "err", err)
		}
	}
	return stats, nil
}

func (s *AdminService) dropStatsCache(ctx context.Context) {
	if err := s.cache.Delete(ctx, adminStatsKey); err != nil {
		logctx.From(ctx).Warn("failed to drop stats cache", "err", err)
	}
}
