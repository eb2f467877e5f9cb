package ports

import (
	"time"

	"github.com/ANAVHEOBA/dumzfun/core"
)

// Claims is what an access token carries once verified.
type Claims struct {
	Address    string
	IdentityID string
	Roles      []core.Role
	TokenID    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenIssuer mints and checks access tokens and mints opaque refresh
// tokens. A refresh token embeds no semantics; its validity is defined
// entirely by a matching session record.
type TokenIssuer interface {
	// Issue signs an access token for the identity.
	Issue(identity *core.Identity) (string, error)

	// Verify checks signature and expiry and returns the claims.
	// Fails with core.ErrTokenExpired / core.ErrTokenInvalid.
	Verify(token string) (*Claims, error)

	// Decode parses without verifying. Diagnostics only, never
	// authorization.
	Decode(token string) (*Claims, error)

	// IssueRefresh returns a fresh opaque refresh token.
	IssueRefresh() string
}
