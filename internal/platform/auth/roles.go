package auth

import (
	"github.com/medtrace/medtrace/internal/platform/fault"
)

// Role is the closed set of supply-chain actor roles. Every authenticated
// actor carries exactly one role; non-administrative roles own exactly one
// registry entity.
type Role string

const (
	RoleAdministrator     Role = "administrator"
	RoleManufacturer      Role = "manufacturer"
	RoleDistributor       Role = "distributor"
	RoleRegionalAuthority Role = "regional_authority"
	RoleLocalUnit         Role = "local_unit"
	RolePatient           Role = "patient"
)

// AllRoles lists every valid role. Permission tables iterate this so a new
// role added without updating them fails loudly in NewPermissions.
var AllRoles = []Role{
	RoleAdministrator,
	RoleManufacturer,
	RoleDistributor,
	RoleRegionalAuthority,
	RoleLocalUnit,
	RolePatient,
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdministrator, RoleManufacturer, RoleDistributor,
		RoleRegionalAuthority, RoleLocalUnit, RolePatient:
		return Role(s), nil
	}
	return "", fault.Validation("unknown role %q", s)
}

// IsAdmin reports whether the role bypasses ownership and visibility checks.
func (r Role) IsAdmin() bool { return r == RoleAdministrator }
