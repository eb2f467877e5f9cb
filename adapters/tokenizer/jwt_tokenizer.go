package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ANAVHEOBA/dumzfun/core"
	"github.com/ANAVHEOBA/dumzfun/ports"
)

// AudienceAccess tags access tokens so nothing else signed with the same
// secret can pass verification.
const AudienceAccess = "session:access"

// DefaultAccessExpiry is the default access token lifetime.
const DefaultAccessExpiry = 24 * time.Hour

// JWTTokenizer implements the TokenIssuer port with HS256 and a process-wide
// secret. Refresh tokens are opaque UUIDs; the session store alone decides
// whether one is still good.
type JWTTokenizer struct {
	secret []byte
	expiry time.Duration
}

// NewJWTTokenizer creates a tokenizer. A non-positive expiry falls back to
// DefaultAccessExpiry.
func NewJWTTokenizer(secret []byte, expiry time.Duration) *JWTTokenizer {
	if expiry <= 0 {
		expiry = DefaultAccessExpiry
	}
	return &JWTTokenizer{secret: secret, expiry: expiry}
}

// Issue signs an access token carrying the identity's address, roles and id.
func (j *JWTTokenizer) Issue(identity *core.Identity) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Address,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
		},
		Roles:      identity.Roles,
		IdentityID: identity.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, audience and expiry and returns the claims.
func (j *JWTTokenizer) Verify(tokenStr string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceAccess))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, core.ErrTokenInvalid
	}

	return toPortClaims(claims), nil
}

// Decode parses without verifying the signature. Diagnostics only; the
// result must never gate authorization.
func (j *JWTTokenizer) Decode(tokenStr string) (*ports.Claims, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return nil, core.ErrTokenInvalid
	}
	return toPortClaims(&claims), nil
}

// IssueRefresh returns a fresh opaque refresh token.
func (j *JWTTokenizer) IssueRefresh() string {
	return uuid.New().String()
}

func toPortClaims(claims *accessClaims) *ports.Claims {
	out := &ports.Claims{
		Address:    claims.Subject,
		IdentityID: claims.IdentityID,
		Roles:      claims.Roles,
		TokenID:    claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}
