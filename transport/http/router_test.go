package http

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANAVHEOBA/dumzfun/adapters/cache"
	"github.com/ANAVHEOBA/dumzfun/adapters/events"
	"github.com/ANAVHEOBA/dumzfun/adapters/ledger"
	"github.com/ANAVHEOBA/dumzfun/adapters/store/memory"
	"github.com/ANAVHEOBA/dumzfun/adapters/tokenizer"
	"github.com/ANAVHEOBA/dumzfun/adapters/wallet"
	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router     *gin.Engine
	deps       RouterDeps
	identities *memory.IdentityRepo
	sessions   *memory.SessionRepo

	key     *ecdsa.PrivateKey
	address string
}

func newAPIFixture(t *testing.T, rateLimitMax int64) *apiFixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	c := cache.NewMemoryCache()
	sessions := memory.NewSessionRepo()
	identities := memory.NewIdentityRepo()
	profiles := memory.NewProfileRepo()
	issuer := tokenizer.NewJWTTokenizer([]byte("test-secret"), time.Hour)

	authService := service.NewAuthService(
		wallet.NewVerifier(), issuer, c,
		sessions, identities, events.NopPublisher{},
		5*time.Minute, 24*time.Hour,
	)
	sessionService := service.NewSessionService(sessions, c, events.NopPublisher{})
	profileService := service.NewProfileService(profiles, ledger.NewMemoryStore(), c)
	adminService := service.NewAdminService(identities, profiles, sessionService, sessions, c)

	deps := RouterDeps{
		Issuer:          issuer,
		Cache:           c,
		Auth:            authService,
		Sessions:        sessionService,
		Profiles:        profileService,
		Admin:           adminService,
		RateLimitMax:    rateLimitMax,
		RateLimitWindow: time.Minute,
	}

	return &apiFixture{
		router:     SetupRouter(deps),
		deps:       deps,
		identities: identities,
		sessions:   sessions,
		key:        key,
		address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func dataField[T any](t *testing.T, env envelope, key string) T {
	t.Helper()

	data, ok := env.Data.(map[string]any)
	require.True(t, ok, "data must be an object")
	v, ok := data[key].(T)
	require.True(t, ok, "data.%s missing or wrong type", key)
	return v
}

// login drives the full challenge flow over HTTP and returns the token pair.
func (f *apiFixture) login(t *testing.T) (accessToken, refreshToken string) {
	t.Helper()

	rec, env := f.do(t, http.MethodPost, "/auth/connect", "", gin.H{"walletAddress": f.address})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	message := dataField[string](t, env, "message")

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), f.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	rec, env = f.do(t, http.MethodPost, "/auth/verify", "", gin.H{
		"walletAddress": f.address,
		"signature":     hexutil.Encode(sig),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	return dataField[string](t, env, "token"), dataField[string](t, env, "refreshToken")
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, 100)

	rec, _ := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	f := newAPIFixture(t, 100)

	token, refreshToken := f.login(t)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, refreshToken)

	rec, env := f.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, core.NormalizeAddress(f.address), dataField[string](t, env, "walletAddress"))
}

func TestConnect_BadAddress(t *testing.T) {
	f := newAPIFixture(t, 100)

	rec, env := f.do(t, http.MethodPost, "/auth/connect", "", gin.H{"walletAddress": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeValidation, env.Error.Code)
}

func TestVerify_BadSignature(t *testing.T) {
	f := newAPIFixture(t, 100)

	rec, env := f.do(t, http.MethodPost, "/auth/connect", "", gin.H{"walletAddress": f.address})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/auth/verify", "", gin.H{
		"walletAddress": f.address,
		"signature":     "0xdeadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeAuthentication, env.Error.Code)
}

func TestProtected_NoToken(t *testing.T) {
	f := newAPIFixture(t, 100)

	rec, env := f.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeAuthentication, env.Error.Code)
}

func TestProtected_RevokedSessionRejected(t *testing.T) {
	f := newAPIFixture(t, 100)

	token, _ := f.login(t)

	rec, _ := f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token is still well signed but its session is gone.
	rec, env := f.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeAuthentication, env.Error.Code)
}

func TestRefreshOverHTTP(t *testing.T) {
	f := newAPIFixture(t, 100)

	_, refreshToken := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refreshToken": refreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	newToken := dataField[string](t, env, "token")
	assert.NotEmpty(t, dataField[string](t, env, "refreshToken"))

	// The rotated pair comes back with the owning identity attached.
	user, ok := env.Data.(map[string]any)["user"].(map[string]any)
	require.True(t, ok, "refresh response must carry the user")
	assert.Equal(t, core.NormalizeAddress(f.address), user["walletAddress"])

	rec, _ = f.do(t, http.MethodGet, "/api/me", newToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_Forbidden(t *testing.T) {
	f := newAPIFixture(t, 100)

	token, _ := f.login(t)

	rec, env := f.do(t, http.MethodGet, "/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeAuthorization, env.Error.Code)
}

func TestAdmin_Allowed(t *testing.T) {
	f := newAPIFixture(t, 100)

	// First login creates the identity, then it gets promoted; the next
	// login issues a token that carries the admin role.
	f.login(t)
	_, err := f.identities.UpdateRoles(t.Context(), core.NormalizeAddress(f.address),
		[]core.Role{core.RoleUser, core.RoleAdmin})
	require.NoError(t, err)
	token, _ := f.login(t)

	rec, env := f.do(t, http.MethodGet, "/admin/stats", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = f.do(t, http.MethodGet, "/admin/users?offset=0&limit=10", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newAPIFixture(t, 2)

	for i := 0; i < 2; i++ {
		rec, _ := f.do(t, http.MethodPost, "/auth/connect", "", gin.H{"walletAddress": f.address})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := f.do(t, http.MethodPost, "/auth/connect", "", gin.H{"walletAddress": f.address})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeRateLimit, env.Error.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	reset, err := strconv.ParseInt(rec.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err, "X-RateLimit-Reset must be epoch seconds")
	assert.InDelta(t, time.Now().Add(time.Minute).Unix(), reset, 5,
		"reset must point at the end of the current window")
}

func TestSessionEndpoints(t *testing.T) {
	f := newAPIFixture(t, 100)

	token, _ := f.login(t)

	rec, env := f.do(t, http.MethodGet, "/api/sessions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions, ok := env.Data.(map[string]any)["sessions"].([]any)
	require.True(t, ok)
	require.Len(t, sessions, 1)

	// Tokens must never appear in the listing.
	raw, _ := json.Marshal(sessions[0])
	assert.NotContains(t, string(raw), token)

	rec, _ = f.do(t, http.MethodDelete, "/api/sessions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileEndpoints(t *testing.T) {
	f := newAPIFixture(t, 100)

	token, _ := f.login(t)

	rec, env := f.do(t, http.MethodPost, "/api/profile", token, gin.H{
		"username": "alice",
		"bio":      "gm",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	rec, env = f.do(t, http.MethodPost, "/api/profile", token, gin.H{"username": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, core.CodeConflict, env.Error.Code)

	rec, env = f.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Public read needs no token.
	rec, env = f.do(t, http.MethodGet, "/profiles/"+core.NormalizeAddress(f.address), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", dataField[string](t, env, "username"))

	rec, env = f.do(t, http.MethodGet, "/api/profile/ledger-status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, dataField[string](t, env, "status"))

	rec, env = f.do(t, http.MethodDelete, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/profiles/"+core.NormalizeAddress(f.address), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deactivated, ok := env.Data.(map[string]any)["isActive"].(bool)
	require.True(t, ok)
	assert.False(t, deactivated)
}

func TestAdmin_InvalidateUserSessions(t *testing.T) {
	f := newAPIFixture(t, 100)

	f.login(t)
	_, err := f.identities.UpdateRoles(t.Context(), core.NormalizeAddress(f.address),
		[]core.Role{core.RoleUser, core.RoleAdmin})
	require.NoError(t, err)
	adminToken, _ := f.login(t)

	target := "0x742d35cc6634c0532925a3b844bc454e4438f44e"
	seedTargetSession(t, f, target)

	rec, _ := f.do(t, http.MethodDelete, "/admin/users/"+target+"/sessions", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	active, err := f.sessions.ActiveByAddress(t.Context(), target)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func seedTargetSession(t *testing.T, f *apiFixture, address string) {
	t.Helper()

	now := time.Now()
	require.NoError(t, f.sessions.Create(t.Context(), &core.Session{
		ID:           "target-session",
		Address:      address,
		Token:        "target-token",
		RefreshToken: "target-refresh",
		IsValid:      true,
		ExpiresAt:    now.Add(time.Hour),
		LastUsed:     now,
		CreatedAt:    now,
	}))
}
