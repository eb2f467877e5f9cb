package core

import (
	"strings"
	"time"
)

// DefaultSessionTTL is the session lifetime applied when a caller does not
// set one explicitly.
const DefaultSessionTTL = 24 * time.Hour

// Role is an access level attached to an identity.
type Role string

const (
	RoleUser    Role = "USER"
	RoleCreator Role = "CREATOR"
	RoleAdmin   Role = "ADMIN"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleCreator, RoleAdmin:
		return true
	}
	return false
}

// ChallengeMessage is the exact text a wallet signs to prove ownership.
func ChallengeMessage(nonce string) string {
	return "Verify wallet ownership with nonce: " + nonce
}

// NormalizeAddress canonicalizes a wallet address for lookup and uniqueness.
// Addresses differing only in letter case are the same identity.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Identity is the authenticated principal, keyed by wallet address.
type Identity struct {
	ID        string            // Surrogate id assigned by the persistence layer
	Address   string            // Wallet address, lowercase canonical hex
	Roles     []Role            // At least one; unordered
	Active    bool              // Deactivated identities cannot authenticate
	ENSName   string            // Optional resolved display name
	Metadata  map[string]string // Free-form
	LastLogin time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasRole reports whether the identity carries any of the given roles.
func (i *Identity) HasRole(roles ...Role) bool {
	for _, want := range roles {
		for _, have := range i.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// TokenPair is one signed access token plus its opaque refresh counterpart.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// DeviceInfo is optional request metadata recorded on a session.
type DeviceInfo struct {
	UserAgent string
	IPAddress string
	Device    string
}

// Session binds a token pair to an identity on one device. Refreshing
// rotates the token values in place; the record itself survives.
type Session struct {
	ID           string
	Address      string // Owning wallet address, lowercase
	Token        string // Current access token, unique
	RefreshToken string // Current refresh token, unique
	IsValid      bool
	ExpiresAt    time.Time
	LastUsed     time.Time
	CreatedAt    time.Time
	DeviceInfo   DeviceInfo
}

// ActiveAt reports whether the session may authenticate requests at t.
func (s *Session) ActiveAt(t time.Time) bool {
	return s.IsValid && s.ExpiresAt.After(t)
}

// Profile is the public-facing record attached to an identity. The payload
// is mirrored to the decentralized ledger; LedgerTxID points at that copy.
type Profile struct {
	Address    string
	Username   string
	Bio        string
	AvatarURL  string
	Metadata   map[string]string
	LedgerTxID string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Stats is the aggregate snapshot served to operators. Values are cached
// briefly and may lag reality.
type Stats struct {
	TotalIdentities  int64
	ActiveIdentities int64
	ActiveSessions   int64
	TotalProfiles    int64
	IdentitiesByRole map[Role]int64
	GeneratedAt      time.Time
}
