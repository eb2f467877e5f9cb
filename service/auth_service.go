package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/internal/logctx"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

const noncePrefix = "nonce:"

const (
	// DefaultNonceTTL bounds how long a challenge stays answerable.
	DefaultNonceTTL = 5 * time.Minute

	// DefaultSessionTTL is the absolute session lifetime.
	DefaultSessionTTL = core.DefaultSessionTTL
)

// ConnectResult is the challenge handed back from Connect.
type ConnectResult struct {
	Nonce         string
	WalletAddress string
	Message       string
}

// AuthResult is an authenticated identity plus its fresh token pair.
type AuthResult struct {
	Identity *core.Identity
	Tokens   core.TokenPair
}

// AuthService orchestrates the login lifecycle:
// connect -> verify -> refresh* -> logout. It owns nonce issuance and
// consumption; everything else goes through injected ports.
type AuthService struct {
	verifier   ports.SignatureVerifier
	issuer     ports.TokenIssuer
	cache      ports.Cache
	sessions   ports.SessionRepository
	identities ports.IdentityRepository
	events     ports.EventPublisher

	nonceTTL   time.Duration
	sessionTTL time.Duration
}

// NewAuthService wires the orchestrator. Non-positive TTLs fall back to the
// defaults.
func NewAuthService(
	verifier ports.SignatureVerifier,
	issuer ports.TokenIssuer,
	cache ports.Cache,
	sessions ports.SessionRepository,
	identities ports.IdentityRepository,
	events ports.EventPublisher,
	nonceTTL, sessionTTL time.Duration,
) *AuthService {
	if nonceTTL <= 0 {
		nonceTTL = DefaultNonceTTL
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		verifier:   verifier,
		issuer:     issuer,
		cache:      cache,
		sessions:   sessions,
		identities: identities,
		events:     events,
		nonceTTL:   nonceTTL,
		sessionTTL: sessionTTL,
	}
}

// Connect issues a challenge nonce for the address. A prior nonce for the
// same address is overwritten; only the most recent challenge is valid.
func (s *AuthService) Connect(ctx context.Context, address string) (*ConnectResult, error) {
	if !s.verifier.ValidAddress(address) {
		return nil, core.ValidationError("invalid wallet address")
	}
	address = core.NormalizeAddress(address)

	nonce, err := s.verifier.Nonce()
	if err != nil {
		return nil, core.InternalError("failed to initiate wallet connection", err)
	}

	if err := s.cache.Set(ctx, noncePrefix+address, nonce, s.nonceTTL); err != nil {
		return nil, core.InternalError("failed to initiate wallet connection", err)
	}

	return &ConnectResult{
		Nonce:         nonce,
		WalletAddress: address,
		Message:       core.ChallengeMessage(nonce),
	}, nil
}

// Verify checks the signed challenge, upserts the identity and opens a
// session. The nonce is deleted only after the session exists
// (commit-after-success), so a failed attempt stays retryable until the
// nonce TTL runs out; success consumes the nonce and a replay fails as
// not-found.
func (s *AuthService) Verify(ctx context.Context, address, signature string, device core.DeviceInfo) (*AuthResult, error) {
	if !s.verifier.ValidAddress(address) {
		return nil, core.ValidationError("invalid wallet address")
	}
	address = core.NormalizeAddress(address)
	nonceKey := noncePrefix + address

	nonce, ok, err := s.cache.Get(ctx, nonceKey)
	if err != nil {
		return nil, core.InternalError("authentication failed", err)
	}
	if !ok {
		return nil, core.AuthenticationError("nonce expired or not found")
	}

	if !s.verifier.Verify(core.ChallengeMessage(nonce), signature, address) {
		return nil, core.AuthenticationError("invalid signature")
	}

	identity, err := s.identities.Upsert(ctx, &core.Identity{
		ID:      uuid.New().String(),
		Address: address,
		Roles:   []core.Role{core.RoleUser},
		Active:  true,
	})
	if err != nil {
		return nil, core.InternalError("authentication failed", err)
	}
	if !identity.Active {
		return nil, core.AuthenticationError("account is deactivated")
	}

	pair, err := s.openSession(ctx, identity, device)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.identities.SetLastLogin(ctx, address, now); err != nil {
		logctx.From(ctx).Warn("failed to stamp last login", "address", address, "err", err)
	}

	// Single-use: consume the nonce only once the session is committed.
	if err := s.cache.Delete(ctx, nonceKey); err != nil {
		logctx.From(ctx).Error("failed to consume nonce", "address", address, "err", err)
		// The session is live; invalidating it over a cache error would
		// punish the user. The nonce still dies at TTL.
	}

	return &AuthResult{Identity: identity, Tokens: pair}, nil
}

// Refresh rotates both tokens of the session owning refreshToken. The old
// pair is unusable the moment this returns; the session record itself,
// including its creation timestamp, survives.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	session, err := s.sessions.ByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, core.AuthenticationError("invalid or expired refresh token")
		}
		return nil, core.InternalError("token refresh failed", err)
	}

	identity, err := s.identities.ByAddress(ctx, session.Address)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, core.NotFoundError("user not found")
		}
		return nil, core.InternalError("token refresh failed", err)
	}
	if !identity.Active {
		return nil, core.AuthenticationError("account is deactivated")
	}

	accessToken, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, core.InternalError("token refresh failed", err)
	}
	pair := core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: s.issuer.IssueRefresh(),
	}

	if err := s.sessions.Rotate(ctx, session.ID, pair, time.Now()); err != nil {
		return nil, core.InternalError("token refresh failed", err)
	}

	return &AuthResult{Identity: identity, Tokens: pair}, nil
}

// Logout invalidates the session carrying the access token. Unknown tokens
// are a no-op: logging out twice, or with a token that never had a session,
// never errors.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	session, err := s.sessions.ByToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return core.InternalError("logout failed", err)
	}

	if err := s.sessions.Invalidate(ctx, session.ID); err != nil && !errors.Is(err, ports.ErrNotFound) {
		return core.InternalError("logout failed", err)
	}

	if err := s.events.PublishLogout(ctx, session.Address, session.ID); err != nil {
		// The session is already invalid in the store, which is what
		// matters; other instances converge on their next lookup.
		logctx.From(ctx).Warn("failed to publish logout event", "session_id", session.ID, "err", err)
	}
	return nil
}

// ValidateSession is the single gate protected operations pass through.
// It returns the live session for the access token and stamps lastUsed.
func (s *AuthService) ValidateSession(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.sessions.ByToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, core.AuthenticationError("invalid or expired session")
		}
		return nil, core.InternalError("session validation failed", err)
	}

	if err := s.sessions.Touch(ctx, session.ID, time.Now()); err != nil {
		logctx.From(ctx).Warn("failed to touch session", "session_id", session.ID, "err", err)
	}
	return session, nil
}

func (s *AuthService) openSession(ctx context.Context, identity *core.Identity, device core.DeviceInfo) (core.TokenPair, error) {
	accessToken, err := s.issuer.Issue(identity)
	if err != nil {
		return core.TokenPair{}, core.InternalError("authentication failed", err)
	}

	pair := core.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: s.issuer.IssueRefresh(),
	}

	now := time.Now()
	session := &core.Session{
		ID:           uuid.New().String(),
		Address:      identity.Address,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		IsValid:      true,
		ExpiresAt:    now.Add(s.sessionTTL),
		LastUsed:     now,
		CreatedAt:    now,
		DeviceInfo:   device,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return core.TokenPair{}, core.InternalError("authentication failed", err)
	}
	return pair, nil
}
