// Package memory holds in-memory implementations of the repository ports.
// They back tests and single-process local runs; production uses postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

// SessionRepo is a mutex-guarded map of sessions keyed by id.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewSessionRepo creates an empty session repository.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*core.Session)}
}

var _ ports.SessionRepository = (*SessionRepo)(nil)

func (r *SessionRepo) Create(ctx context.Context, session *core.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Token == session.Token || s.RefreshToken == session.RefreshToken {
			return fmt.Errorf("create session: %w", ports.ErrAlreadyExists)
		}
	}
	clone := *session
	if clone.ExpiresAt.IsZero() {
		clone.ExpiresAt = time.Now().Add(core.DefaultSessionTTL)
	}
	r.sessions[session.ID] = &clone
	return nil
}

func (r *SessionRepo) ByToken(ctx context.Context, token string) (*core.Session, error) {
	return r.find(func(s *core.Session) bool { return s.Token == token })
}

func (r *SessionRepo) ByRefreshToken(ctx context.Context, refreshToken string) (*core.Session, error) {
	return r.find(func(s *core.Session) bool { return s.RefreshToken == refreshToken })
}

// find returns the first active session matching the predicate.
func (r *SessionRepo) find(match func(*core.Session) bool) (*core.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	for _, s := range r.sessions {
		if match(s) && s.ActiveAt(now) {
			clone := *s
			return &clone, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *SessionRepo) ByID(ctx context.Context, sessionID string) (*core.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *SessionRepo) Rotate(ctx context.Context, sessionID string, pair core.TokenPair, lastUsed time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return ports.ErrNotFound
	}
	s.Token = pair.AccessToken
	s.RefreshToken = pair.RefreshToken
	s.LastUsed = lastUsed
	return nil
}

func (r *SessionRepo) Invalidate(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return ports.ErrNotFound
	}
	s.IsValid = false
	return nil
}

func (r *SessionRepo) InvalidateAllForAddress(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Address == address {
			s.IsValid = false
		}
	}
	return nil
}

func (r *SessionRepo) ActiveByAddress(ctx context.Context, address string) ([]*core.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var out []*core.Session
	for _, s := range r.sessions {
		if s.Address == address && s.ActiveAt(now) {
			clone := *s
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsed.After(out[j].LastUsed) })
	return out, nil
}

func (r *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.LastUsed = at
	}
	return nil
}

func (r *SessionRepo) DeleteDefunct(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for id, s := range r.sessions {
		if !s.IsValid || !s.ExpiresAt.After(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *SessionRepo) CountActive(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var n int64
	for _, s := range r.sessions {
		if s.ActiveAt(now) {
			n++
		}
	}
	return n, nil
}

// IdentityRepo is a mutex-guarded map of identities keyed by address.
type IdentityRepo struct {
	mu         sync.RWMutex
	identities map[string]*core.Identity
}

// NewIdentityRepo creates an empty identity repository.
func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{identities: make(map[string]*core.Identity)}
}

var _ ports.IdentityRepository = (*IdentityRepo)(nil)

func (r *IdentityRepo) Upsert(ctx context.Context, identity *core.Identity) (*core.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.identities[identity.Address]; ok {
		clone := *existing
		return &clone, nil
	}

	clone := *identity
	now := time.Now()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.identities[identity.Address] = &clone

	out := clone
	return &out, nil
}

func (r *IdentityRepo) ByAddress(ctx context.Context, address string) (*core.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[address]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *identity
	return &clone, nil
}

func (r *IdentityRepo) UpdateRoles(ctx context.Context, address string, roles []core.Role) (*core.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[address]
	if !ok {
		return nil, ports.ErrNotFound
	}
	identity.Roles = append([]core.Role(nil), roles...)
	identity.UpdatedAt = time.Now()
	clone := *identity
	return &clone, nil
}

func (r *IdentityRepo) SetActive(ctx context.Context, address string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[address]
	if !ok {
		return ports.ErrNotFound
	}
	identity.Active = active
	identity.UpdatedAt = time.Now()
	return nil
}

func (r *IdentityRepo) SetLastLogin(ctx context.Context, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity, ok := r.identities[address]; ok {
		identity.LastLogin = at
	}
	return nil
}

func (r *IdentityRepo) List(ctx context.Context, offset, limit int) ([]*core.Identity, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*core.Identity, 0, len(r.identities))
	for _, identity := range r.identities {
		clone := *identity
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *IdentityRepo) Count(ctx context.Context) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total, active int64
	for _, identity := range r.identities {
		total++
		if identity.Active {
			active++
		}
	}
	return total, active, nil
}

func (r *IdentityRepo) CountByRole(ctx context.Context) (map[core.Role]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[core.Role]int64)
	for _, identity := range r.identities {
		for _, role := range identity.Roles {
			counts[role]++
		}
	}
	return counts, nil
}

// ProfileRepo is a mutex-guarded map of profiles keyed by address.
type ProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]*core.Profile
}

// NewProfileRepo creates an empty profile repository.
func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{profiles: make(map[string]*core.Profile)}
}

var _ ports.ProfileRepository = (*ProfileRepo)(nil)

func (r *ProfileRepo) Create(ctx context.Context, profile *core.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profile.Address]; ok {
		return ports.ErrAlreadyExists
	}
	clone := *profile
	now := time.Now()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	r.profiles[profile.Address] = &clone
	return nil
}

func (r *ProfileRepo) ByAddress(ctx context.Context, address string) (*core.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[address]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (r *ProfileRepo) Update(ctx context.Context, profile *core.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.profiles[profile.Address]
	if !ok {
		return ports.ErrNotFound
	}
	created := existing.CreatedAt
	clone := *profile
	clone.CreatedAt = created
	clone.UpdatedAt = time.Now()
	r.profiles[profile.Address] = &clone
	return nil
}

func (r *ProfileRepo) SetActive(ctx context.Context, address string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[address]
	if !ok {
		return ports.ErrNotFound
	}
	profile.Active = active
	profile.UpdatedAt = time.Now()
	return nil
}

func (r *ProfileRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.profiles)), nil
}
