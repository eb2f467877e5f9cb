package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

func newSession(id, address, token string) *core.Session {
	now := time.Now()
	return &core.Session{
		ID:           id,
		Address:      address,
		Token:        token,
		RefreshToken: "refresh-" + id,
		IsValid:      true,
		ExpiresAt:    now.Add(time.Hour),
		LastUsed:     now,
		CreatedAt:    now,
	}
}

func TestSessionRepo_CreateAndLookup(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s1", "0xabc", "tok1")))

	byToken, err := repo.ByToken(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byToken.ID)

	byRefresh, err := repo.ByRefreshToken(ctx, "refresh-s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", byRefresh.ID)

	_, err = repo.ByToken(ctx, "nope")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestSessionRepo_CreateDefaultsExpiry(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	s := newSession("s1", "0xabc", "tok1")
	s.ExpiresAt = time.Time{}
	require.NoError(t, repo.Create(ctx, s))

	stored, err := repo.ByID(ctx, "s1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(core.DefaultSessionTTL), stored.ExpiresAt, time.Minute)

	// And the defaulted session is immediately usable.
	_, err = repo.ByToken(ctx, "tok1")
	assert.NoError(t, err)
}

func TestSessionRepo_DuplicateToken(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s1", "0xabc", "tok")))
	err := repo.Create(ctx, newSession("s2", "0xdef", "tok"))
	assert.ErrorIs(t, err, ports.ErrAlreadyExists)
}

func TestSessionRepo_InvalidatedInvisible(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s1", "0xabc", "tok1")))
	require.NoError(t, repo.Invalidate(ctx, "s1"))

	_, err := repo.ByToken(ctx, "tok1")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	// ByID still sees it: admin surfaces need revoked rows too.
	s, err := repo.ByID(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, s.IsValid)
}

func TestSessionRepo_ExpiredInvisible(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	s := newSession("s1", "0xabc", "tok1")
	s.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, s))

	_, err := repo.ByToken(ctx, "tok1")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestSessionRepo_Rotate(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	original := newSession("s1", "0xabc", "tok1")
	require.NoError(t, repo.Create(ctx, original))

	pair := core.TokenPair{AccessToken: "tok2", RefreshToken: "refresh2"}
	require.NoError(t, repo.Rotate(ctx, "s1", pair, time.Now()))

	_, err := repo.ByToken(ctx, "tok1")
	assert.ErrorIs(t, err, ports.ErrNotFound, "old access token must stop resolving")

	rotated, err := repo.ByToken(ctx, "tok2")
	require.NoError(t, err)
	assert.Equal(t, "refresh2", rotated.RefreshToken)
	assert.Equal(t, original.CreatedAt.Unix(), rotated.CreatedAt.Unix(), "rotation keeps the session row")
}

func TestSessionRepo_InvalidateAllForAddress(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newSession("s1", "0xabc", "tok1")))
	require.NoError(t, repo.Create(ctx, newSession("s2", "0xabc", "tok2")))
	require.NoError(t, repo.Create(ctx, newSession("s3", "0xdef", "tok3")))

	require.NoError(t, repo.InvalidateAllForAddress(ctx, "0xabc"))

	mine, err := repo.ActiveByAddress(ctx, "0xabc")
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := repo.ActiveByAddress(ctx, "0xdef")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestSessionRepo_DeleteDefunct(t *testing.T) {
	repo := NewSessionRepo()
	ctx := context.Background()

	expired := newSession("s1", "0xabc", "tok1")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, expired))

	require.NoError(t, repo.Create(ctx, newSession("s2", "0xabc", "tok2")))
	require.NoError(t, repo.Invalidate(ctx, "s2"))

	require.NoError(t, repo.Create(ctx, newSession("s3", "0xabc", "tok3")))

	removed, err := repo.DeleteDefunct(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIdentityRepo_UpsertIdempotent(t *testing.T) {
	repo := NewIdentityRepo()
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &core.Identity{
		ID:      "id-1",
		Address: "0xabc",
		Roles:   []core.Role{core.RoleUser},
		Active:  true,
	})
	require.NoError(t, err)

	_, err = repo.UpdateRoles(ctx, "0xabc", []core.Role{core.RoleUser, core.RoleAdmin})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, &core.Identity{
		ID:      "id-2",
		Address: "0xabc",
		Roles:   []core.Role{core.RoleUser},
		Active:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "upsert must not replace an existing identity")
	assert.Contains(t, second.Roles, core.RoleAdmin, "upsert must not reset roles")
}

func TestIdentityRepo_ListPagination(t *testing.T) {
	repo := NewIdentityRepo()
	ctx := context.Background()

	for _, addr := range []string{"0xa1", "0xa2", "0xa3"} {
		_, err := repo.Upsert(ctx, &core.Identity{
			ID:      addr,
			Address: addr,
			Roles:   []core.Role{core.RoleUser},
			Active:  true,
		})
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)

	rest, total, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, rest, 1)

	empty, total, err := repo.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, empty)
}

func TestIdentityRepo_Counts(t *testing.T) {
	repo := NewIdentityRepo()
	ctx := context.Background()

	for _, id := range []*core.Identity{
		{ID: "1", Address: "0xa1", Roles: []core.Role{core.RoleUser}, Active: true},
		{ID: "2", Address: "0xa2", Roles: []core.Role{core.RoleUser, core.RoleCreator}, Active: true},
		{ID: "3", Address: "0xa3", Roles: []core.Role{core.RoleAdmin}, Active: false},
	} {
		_, err := repo.Upsert(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, repo.SetActive(ctx, "0xa3", false))

	total, active, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), active)

	byRole, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byRole[core.RoleUser])
	assert.Equal(t, int64(1), byRole[core.RoleCreator])
	assert.Equal(t, int64(1), byRole[core.RoleAdmin])
}

func TestProfileRepo_CreateConflict(t *testing.T) {
	repo := NewProfileRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &core.Profile{Address: "0xabc", Username: "alice"}))
	err := repo.Create(ctx, &core.Profile{Address: "0xabc", Username: "other"})
	assert.ErrorIs(t, err, ports.ErrAlreadyExists)
}

func TestProfileRepo_UpdatePreservesCreatedAt(t *testing.T) {
	repo := NewProfileRepo()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &core.Profile{Address: "0xabc", Username: "alice"}))
	created, err := repo.ByAddress(ctx, "0xabc")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, &core.Profile{Address: "0xabc", Username: "alice2"}))

	updated, err := repo.ByAddress(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}
