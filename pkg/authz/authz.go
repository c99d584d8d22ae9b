// Package authz holds the authorization policy shared by all services.
package authz

import (
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/google/uuid"
)

// Capability is one way a caller can qualify for an operation.
type Capability int

const (
	// Admin is granted to callers with the admin role.
	Admin Capability = iota + 1
	// Owner is granted when the caller owns the resource.
	Owner
)

func (c Capability) String() string {
	switch c {
	case Admin:
		return "admin"
	case Owner:
		return "owner"
	}
	return "unknown"
}

// Decision is the policy outcome.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID uuid.UUID
	Role   user.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.Role == user.RoleAdmin
}

// Resource is anything with an owning user. For users themselves the
// owner is the user.
type Resource struct {
	OwnerID uuid.UUID
}

// OwnedBy builds a Resource.
func OwnedBy(ownerID uuid.UUID) Resource {
	return Resource{OwnerID: ownerID}
}

// Authorize allows the caller when any of caps applies.
func Authorize(caller Caller, res Resource, caps ...Capability) Decision {
	for _, c := range caps {
		switch c {
		case Admin:
			if caller.IsAdmin() {
				return Allow
			}
		case Owner:
			if caller.UserID != uuid.Nil && caller.UserID == res.OwnerID {
				return Allow
			}
		}
	}
	return Deny
}

// Require is Authorize returning domain.ErrForbidden on Deny.
func Require(caller Caller, res Resource, caps ...Capability) error {
	if Authorize(caller, res, caps...) == Deny {
		return domain.ErrForbidden
	}
	return nil
}

// RequireAdmin fails unless the caller is an admin.
func RequireAdmin(caller Caller) error {
	if !caller.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}
