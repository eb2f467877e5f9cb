package tokenizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANAVHEOBA/dumzfun/core"
)

var testIdentity = &core.Identity{
	ID:      "11111111-1111-1111-1111-111111111111",
	Address: "0x742d35cc6634c0532925a3b844bc454e4438f44e",
	Roles:   []core.Role{core.RoleUser, core.RoleCreator},
	Active:  true,
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"), time.Hour)

	token, err := tk.Issue(testIdentity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tk.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity.Address, claims.Address)
	assert.Equal(t, testIdentity.ID, claims.IdentityID)
	assert.Equal(t, testIdentity.Roles, claims.Roles)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewJWTTokenizer([]byte("secret-a"), time.Hour).Issue(testIdentity)
	require.NoError(t, err)

	_, err = NewJWTTokenizer([]byte("secret-b"), time.Hour).Verify(token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerify_Tampered(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"), time.Hour)

	token, err := tk.Issue(testIdentity)
	require.NoError(t, err)

	raw := []byte(token)
	if raw[10] == 'A' {
		raw[10] = 'B'
	} else {
		raw[10] = 'A'
	}

	_, err = tk.Verify(string(raw))
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerify_Expired(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"), time.Hour)
	tk.expiry = -time.Minute

	token, err := tk.Issue(testIdentity)
	require.NoError(t, err)

	_, err = tk.Verify(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerify_Garbage(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"), time.Hour)

	_, err := tk.Verify("not-a-jwt")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestDecode_SkipsSignatureCheck(t *testing.T) {
	token, err := NewJWTTokenizer([]byte("secret-a"), time.Hour).Issue(testIdentity)
	require.NoError(t, err)

	// A tokenizer with a different secret can still decode.
	claims, err := NewJWTTokenizer([]byte("secret-b"), time.Hour).Decode(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity.Address, claims.Address)
}

func TestIssueRefresh_Unique(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"), time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := tk.IssueRefresh()
		require.NotEmpty(t, token)
		require.False(t, seen[token], "refresh tokens must not repeat")
		seen[token] = true
	}
}
