package movement

import (
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/domain/registry"
	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

// Kind names one of the three custody stages. All three share one handoff
// implementation; the kind selects the entity-type binding.
type Kind string

const (
	KindDistributorToAuthority Kind = "distributor-to-authority"
	KindAuthorityToUnit        Kind = "authority-to-unit"
	KindUnitToPatient          Kind = "unit-to-patient"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDistributorToAuthority, KindAuthorityToUnit, KindUnitToPatient:
		return Kind(s), nil
	}
	return "", fault.Validation("unknown handoff kind %q", s)
}

// Status is the handoff state machine. IN_TRANSIT rows may be confirmed or
// cancelled; RECEIVED is terminal.
type Status string

const (
	StatusInTransit Status = "IN_TRANSIT"
	StatusReceived  Status = "RECEIVED"
)

// Handoff records one lot in transit between a named origin and destination.
// Lot, origin and destination are fixed at creation; only quantity and note
// may change while IN_TRANSIT, and status advances exactly once through
// confirmation.
type Handoff struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                Kind       `json:"kind"`
	LotID               uuid.UUID  `json:"lot_id"`
	OriginEntityID      uuid.UUID  `json:"origin_entity_id"`
	DestinationEntityID uuid.UUID  `json:"destination_entity_id"`
	Quantity            *int       `json:"quantity,omitempty"`
	Note                *string    `json:"note,omitempty"`
	Status              Status     `json:"status"`
	SentAt              time.Time  `json:"sent_at"`
	ReceivedAt          *time.Time `json:"received_at,omitempty"`
}

// binding fixes, per kind, the entity types at each end and the roles that
// act as sender and receiver.
type binding struct {
	originType      registry.EntityType
	destinationType registry.EntityType
	originRole      auth.Role
	destinationRole auth.Role
	createAction    auth.Action
	listAction      auth.Action
	updateAction    auth.Action
	deleteAction    auth.Action
	confirmAction   auth.Action
}

var bindings = map[Kind]binding{
	KindDistributorToAuthority: {
		originType:      registry.TypeDistributor,
		destinationType: registry.TypeAuthority,
		originRole:      auth.RoleDistributor,
		destinationRole: auth.RoleRegionalAuthority,
		createAction:    auth.ActionMoveDistAuthCreate,
		listAction:      auth.ActionMoveDistAuthList,
		updateAction:    auth.ActionMoveDistAuthUpdate,
		deleteAction:    auth.ActionMoveDistAuthDelete,
		confirmAction:   auth.ActionMoveDistAuthConfirm,
	},
	KindAuthorityToUnit: {
		originType:      registry.TypeAuthority,
		destinationType: registry.TypeUnit,
		originRole:      auth.RoleRegionalAuthority,
		destinationRole: auth.RoleLocalUnit,
		createAction:    auth.ActionMoveAuthUnitCreate,
		listAction:      auth.ActionMoveAuthUnitList,
		updateAction:    auth.ActionMoveAuthUnitUpdate,
		deleteAction:    auth.ActionMoveAuthUnitDelete,
		confirmAction:   auth.ActionMoveAuthUnitConfirm,
	},
	KindUnitToPatient: {
		originType:      registry.TypeUnit,
		destinationType: registry.TypePatient,
		originRole:      auth.RoleLocalUnit,
		destinationRole: auth.RolePatient,
		createAction:    auth.ActionMoveUnitPatCreate,
		listAction:      auth.ActionMoveUnitPatList,
		updateAction:    auth.ActionMoveUnitPatUpdate,
		deleteAction:    auth.ActionMoveUnitPatDelete,
		confirmAction:   auth.ActionMoveUnitPatConfirm,
	},
}

func (k Kind) binding() binding { return bindings[k] }

// upstream returns the stage whose confirmed receipt feeds this one, false
// for the first stage.
func (k Kind) upstream() (Kind, bool) {
	switch k {
	case KindAuthorityToUnit:
		return KindDistributorToAuthority, true
	case KindUnitToPatient:
		return KindAuthorityToUnit, true
	}
	return "", false
}
