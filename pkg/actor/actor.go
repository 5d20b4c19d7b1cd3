// Package actor models the caller behind every state transition as a closed
// set of variants. Callers switch on the concrete type instead of comparing
// role strings.
package actor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// Actor is implemented only by Buyer, Merchant, Admin and System.
type Actor interface {
	Role() enums.ActorRole
	ID() uuid.UUID
	sealed()
}

type Buyer struct{ UserID uuid.UUID }

type Merchant struct{ MerchantID uuid.UUID }

type Admin struct{ UserID uuid.UUID }

// System is the scheduler or any other non-human caller.
type System struct{ Name string }

func (Buyer) Role() enums.ActorRole    { return enums.ActorRoleBuyer }
func (Merchant) Role() enums.ActorRole { return enums.ActorRoleMerchant }
func (Admin) Role() enums.ActorRole    { return enums.ActorRoleAdmin }
func (System) Role() enums.ActorRole   { return enums.ActorRoleSystem }

func (b Buyer) ID() uuid.UUID    { return b.UserID }
func (m Merchant) ID() uuid.UUID { return m.MerchantID }
func (a Admin) ID() uuid.UUID    { return a.UserID }
func (System) ID() uuid.UUID     { return uuid.Nil }

func (Buyer) sealed()    {}
func (Merchant) sealed() {}
func (Admin) sealed()    {}
func (System) sealed()   {}

// FromRole builds the variant for an authenticated identity.
func FromRole(role enums.ActorRole, id uuid.UUID) (Actor, error) {
	if id == uuid.Nil && role != enums.ActorRoleSystem {
		return nil, fmt.Errorf("actor id required for role %s", role)
	}
	switch role {
	case enums.ActorRoleBuyer:
		return Buyer{UserID: id}, nil
	case enums.ActorRoleMerchant:
		return Merchant{MerchantID: id}, nil
	case enums.ActorRoleAdmin:
		return Admin{UserID: id}, nil
	case enums.ActorRoleSystem:
		return System{Name: "system"}, nil
	default:
		return nil, fmt.Errorf("unknown actor role %q", role)
	}
}

// Describe renders the actor for logs and audit metadata.
func Describe(a Actor) string {
	if a == nil {
		return "anonymous"
	}
	if s, ok := a.(System); ok {
		return "system:" + s.Name
	}
	return fmt.Sprintf("%s:%s", a.Role(), a.ID())
}
