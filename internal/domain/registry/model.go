package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/platform/auth"
)

// EntityType discriminates the five participant kinds stored in the single
// entity table.
type EntityType string

const (
	TypeManufacturer EntityType = "manufacturer"
	TypeDistributor  EntityType = "distributor"
	TypeAuthority    EntityType = "regional_authority"
	TypeUnit         EntityType = "local_unit"
	TypePatient      EntityType = "patient"
)

// Entity is a supply-chain participant. OwnerActorID links the row 1:1 to an
// authenticated actor and is set once at creation. ParentID places the entity
// in the hierarchy: a local unit belongs to a regional authority, a patient
// to a local unit; top-level entities have none.
type Entity struct {
	ID           uuid.UUID  `json:"id"`
	Type         EntityType `json:"type"`
	Name         string     `json:"name"`
	Document     string     `json:"document"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone,omitempty"`
	Address      *string    `json:"address,omitempty"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	OwnerActorID string     `json:"owner_actor_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ParentTypeFor returns the required parent entity type, or false for
// top-level types.
func ParentTypeFor(t EntityType) (EntityType, bool) {
	switch t {
	case TypeUnit:
		return TypeAuthority, true
	case TypePatient:
		return TypeUnit, true
	}
	return "", false
}

// RoleFor maps an entity type to the role that owns rows of that type.
func RoleFor(t EntityType) auth.Role {
	switch t {
	case TypeManufacturer:
		return auth.RoleManufacturer
	case TypeDistributor:
		return auth.RoleDistributor
	case TypeAuthority:
		return auth.RoleRegionalAuthority
	case TypeUnit:
		return auth.RoleLocalUnit
	case TypePatient:
		return auth.RolePatient
	}
	return ""
}

// TypeForRole is the inverse of RoleFor. Administrators own no entity.
func TypeForRole(r auth.Role) (EntityType, bool) {
	switch r {
	case auth.RoleManufacturer:
		return TypeManufacturer, true
	case auth.RoleDistributor:
		return TypeDistributor, true
	case auth.RoleRegionalAuthority:
		return TypeAuthority, true
	case auth.RoleLocalUnit:
		return TypeUnit, true
	case auth.RolePatient:
		return TypePatient, true
	}
	return "", false
}
