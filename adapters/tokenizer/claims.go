package tokenizer

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/ANAVHEOBA/dumzfun/core"
)

// accessClaims combines standard claims with identity-specific ones.
type accessClaims struct {
	jwt.RegisteredClaims
	Roles      []core.Role `json:"roles"`
	IdentityID string      `json:"uid"`
}
