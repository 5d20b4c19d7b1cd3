package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// AccessTokenPayload is what the identity provider puts in a token.
// SubjectID is the user id for buyers and admins and the merchant id for
// merchants.
type AccessTokenPayload struct {
	SubjectID uuid.UUID
	Role      enums.ActorRole
	JTI       string
}

// AccessTokenClaims is the typed JWT body.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor maps the verified claims to the caller variant. System identities
// are never accepted from tokens.
func (c *AccessTokenClaims) Actor() (actor.Actor, error) {
	if c == nil {
		return nil, fmt.Errorf("claims required")
	}
	if c.Role == enums.ActorRoleSystem {
		return nil, fmt.Errorf("system role cannot authenticate over http")
	}
	return actor.FromRole(c.Role, c.UserID)
}
