package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANAVHEOBA/dumzfun/adapters/cache"
	"github.com/ANAVHEOBA/dumzfun/adapters/events"
	"github.com/ANAVHEOBA/dumzfun/adapters/store/memory"
	"github.com/ANAVHEOBA/dumzfun/core"
)

func seedSession(t *testing.T, repo *memory.SessionRepo, id, address string) {
	t.Helper()

	now := time.Now()
	require.NoError(t, repo.Create(context.Background(), &core.Session{
		ID:           id,
		Address:      address,
		Token:        "tok-" + id,
		RefreshToken: "refresh-" + id,
		IsValid:      true,
		ExpiresAt:    now.Add(time.Hour),
		LastUsed:     now,
		CreatedAt:    now,
	}))
}

func TestSessionService_ActiveSessions(t *testing.T) {
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo, cache.NewMemoryCache(), events.NopPublisher{})
	ctx := context.Background()

	seedSession(t, repo, "s1", "0xabc")
	seedSession(t, repo, "s2", "0xabc")
	seedSession(t, repo, "s3", "0xdef")

	sessions, err := svc.ActiveSessions(ctx, "0xABC")
	require.NoError(t, err)
	assert.Len(t, sessions, 2, "lookup must be case-insensitive and scoped to the caller")
}

func TestSessionService_ActiveSessionsCached(t *testing.T) {
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo, cache.NewMemoryCache(), events.NopPublisher{})
	ctx := context.Background()

	seedSession(t, repo, "s1", "0xabc")

	first, err := svc.ActiveSessions(ctx, "0xabc")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A session added behind the cache stays invisible until the TTL.
	seedSession(t, repo, "s2", "0xabc")

	second, err := svc.ActiveSessions(ctx, "0xabc")
	require.NoError(t, err)
	assert.Len(t, second, 1)
}

func TestSessionService_InvalidateSession(t *testing.T) {
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo, cache.NewMemoryCache(), events.NopPublisher{})
	ctx := context.Background()

	seedSession(t, repo, "s1", "0xabc")

	require.NoError(t, svc.InvalidateSession(ctx, "0xabc", "s1"))

	sessions, err := svc.ActiveSessions(ctx, "0xabc")
	require.NoError(t, err)
	assert.Empty(t, sessions, "revocation must drop the cached list too")
}

func TestSessionService_InvalidateSession_WrongOwner(t *testing.T) {
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo, cache.NewMemoryCache(), events.NopPublisher{})
	ctx := context.Background()

	seedSession(t, repo, "s1", "0xabc")

	err := svc.InvalidateSession(ctx, "0xdef", "s1")
	requireCode(t, err, core.CodeAuthorization)

	// The session must survive the rejected attempt.
	sessions, err := svc.ActiveSessions(ctx, "0xabc")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSessionService_InvalidateSession_UnknownIsNoop(t *testing.T) {
	svc := NewSessionService(memory.NewSessionRepo(), cache.NewMemoryCache(), events.NopPublisher{})

	assert.NoError(t, svc.InvalidateSession(context.Background(), "0xabc", "no-such-session"))
}

func TestSessionService_InvalidateAll(t *testing.T) {
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo, cache.NewMemoryCache(), events.NopPublisher{})
	ctx := context.Background()

	seedSession(t, repo, "s1", "0xabc")
	seedSession(t, repo, "s2", "0xabc")
	seedSession(t, repo, "s3", "0xdef")

	require.NoError(t, svc.InvalidateAll(ctx, "0xabc"))

	mine, err := svc.ActiveSessions(ctx, "0xabc")
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := svc.ActiveSessions(ctx, "0xdef")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
