package enums

import (
	"fmt"
	"strings"
)

// Role determines which marketplace operations a user may perform.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleArtisan     Role = "artisan"
	RoleDistributor Role = "distributor"
	RoleBuyer       Role = "buyer"
)

var validRoles = []Role{
	RoleAdmin,
	RoleArtisan,
	RoleDistributor,
	RoleBuyer,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// SelfAssignable reports whether a user may pick this role at registration.
func (r Role) SelfAssignable() bool {
	return r.IsValid() && r != RoleAdmin
}

// CanSupply reports whether a user with this role may be referenced as a material supplier.
func (r Role) CanSupply() bool {
	return r == RoleDistributor || r == RoleAdmin
}

// ParseRole converts raw input into a Role. Matching is case-insensitive.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// AllRoles returns every known role in declaration order.
func AllRoles() []Role {
	return append([]Role(nil), validRoles...)
}

// RoleSet is the set of roles admitted by an authorization check. The empty
// set admits any authenticated role.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the supplied roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Admits reports whether role satisfies the set.
func (s RoleSet) Admits(role Role) bool {
	if len(s) == 0 {
		return role.IsValid()
	}
	_, ok := s[role]
	return ok
}

// Roles returns the members of the set in declaration order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for _, role := range validRoles {
		if _, ok := s[role]; ok {
			out = append(out, role)
		}
	}
	return out
}
