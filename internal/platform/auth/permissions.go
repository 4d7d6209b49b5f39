package auth

// Action names a coarse capability checked before any row-level scoping.
type Action string

// Registry actions.
const (
	ActionManufacturerCreate Action = "manufacturer.create"
	ActionManufacturerList   Action = "manufacturer.list"
	ActionManufacturerUpdate Action = "manufacturer.update"
	ActionManufacturerDelete Action = "manufacturer.delete"

	ActionDistributorCreate Action = "distributor.create"
	ActionDistributorList   Action = "distributor.list"
	ActionDistributorUpdate Action = "distributor.update"
	ActionDistributorDelete Action = "distributor.delete"

	ActionAuthorityCreate Action = "authority.create"
	ActionAuthorityList   Action = "authority.list"
	ActionAuthorityUpdate Action = "authority.update"
	ActionAuthorityDelete Action = "authority.delete"

	ActionUnitCreate Action = "unit.create"
	ActionUnitList   Action = "unit.list"
	ActionUnitUpdate Action = "unit.update"
	ActionUnitDelete Action = "unit.delete"

	ActionPatientCreate Action = "patient.create"
	ActionPatientList   Action = "patient.list"
	ActionPatientUpdate Action = "patient.update"
	ActionPatientDelete Action = "patient.delete"
)

// Catalog actions.
const (
	ActionMedicationCreate Action = "medication.create"
	ActionMedicationList   Action = "medication.list"
	ActionMedicationUpdate Action = "medication.update"
	ActionMedicationDelete Action = "medication.delete"

	ActionLotCreate Action = "lot.create"
	ActionLotList   Action = "lot.list"
	ActionLotUpdate Action = "lot.update"
	ActionLotDelete Action = "lot.delete"
)

// Movement actions, one set per handoff stage.
const (
	ActionMoveDistAuthCreate  Action = "movement.distributor_to_authority.create"
	ActionMoveDistAuthList    Action = "movement.distributor_to_authority.list"
	ActionMoveDistAuthUpdate  Action = "movement.distributor_to_authority.update"
	ActionMoveDistAuthDelete  Action = "movement.distributor_to_authority.delete"
	ActionMoveDistAuthConfirm Action = "movement.distributor_to_authority.confirm"

	ActionMoveAuthUnitCreate  Action = "movement.authority_to_unit.create"
	ActionMoveAuthUnitList    Action = "movement.authority_to_unit.list"
	ActionMoveAuthUnitUpdate  Action = "movement.authority_to_unit.update"
	ActionMoveAuthUnitDelete  Action = "movement.authority_to_unit.delete"
	ActionMoveAuthUnitConfirm Action = "movement.authority_to_unit.confirm"

	ActionMoveUnitPatCreate  Action = "movement.unit_to_patient.create"
	ActionMoveUnitPatList    Action = "movement.unit_to_patient.list"
	ActionMoveUnitPatUpdate  Action = "movement.unit_to_patient.update"
	ActionMoveUnitPatDelete  Action = "movement.unit_to_patient.delete"
	ActionMoveUnitPatConfirm Action = "movement.unit_to_patient.confirm"
)

// Projection actions.
const (
	ActionViewStock                Action = "stock.view"
	ActionViewManufacturerOverview Action = "dashboard.manufacturer"
	ActionViewDistributorLogistics Action = "dashboard.distributor"
	ActionViewAuthorityManagement  Action = "dashboard.authority"
	ActionViewUnitStock            Action = "dashboard.unit"
)

var allActions = []Action{
	ActionManufacturerCreate, ActionManufacturerList, ActionManufacturerUpdate, ActionManufacturerDelete,
	ActionDistributorCreate, ActionDistributorList, ActionDistributorUpdate, ActionDistributorDelete,
	ActionAuthorityCreate, ActionAuthorityList, ActionAuthorityUpdate, ActionAuthorityDelete,
	ActionUnitCreate, ActionUnitList, ActionUnitUpdate, ActionUnitDelete,
	ActionPatientCreate, ActionPatientList, ActionPatientUpdate, ActionPatientDelete,
	ActionMedicationCreate, ActionMedicationList, ActionMedicationUpdate, ActionMedicationDelete,
	ActionLotCreate, ActionLotList, ActionLotUpdate, ActionLotDelete,
	ActionMoveDistAuthCreate, ActionMoveDistAuthList, ActionMoveDistAuthUpdate, ActionMoveDistAuthDelete, ActionMoveDistAuthConfirm,
	ActionMoveAuthUnitCreate, ActionMoveAuthUnitList, ActionMoveAuthUnitUpdate, ActionMoveAuthUnitDelete, ActionMoveAuthUnitConfirm,
	ActionMoveUnitPatCreate, ActionMoveUnitPatList, ActionMoveUnitPatUpdate, ActionMoveUnitPatDelete, ActionMoveUnitPatConfirm,
	ActionViewStock,
	ActionViewManufacturerOverview, ActionViewDistributorLogistics, ActionViewAuthorityManagement, ActionViewUnitStock,
}

// Permissions is the role -> action capability table. It is built once at
// startup and passed by reference into handlers and services; there is no
// package-level mutable table.
type Permissions struct {
	allowed map[Role]map[Action]struct{}
}

// NewPermissions builds the capability table. Administrators get every
// action; the remaining grants follow each role's place in the chain:
// origin roles create and cancel, destination roles list and confirm.
func NewPermissions() *Permissions {
	grants := map[Role][]Action{
		RoleManufacturer: {
			ActionManufacturerCreate, ActionManufacturerList, ActionManufacturerUpdate, ActionManufacturerDelete,
			ActionMedicationCreate, ActionMedicationList, ActionMedicationUpdate, ActionMedicationDelete,
			ActionLotCreate, ActionLotList, ActionLotUpdate, ActionLotDelete,
			ActionViewManufacturerOverview,
		},
		RoleDistributor: {
			ActionDistributorCreate, ActionDistributorList, ActionDistributorUpdate, ActionDistributorDelete,
			ActionLotList,
			ActionMoveDistAuthCreate, ActionMoveDistAuthList, ActionMoveDistAuthUpdate, ActionMoveDistAuthDelete,
			ActionViewDistributorLogistics,
		},
		RoleRegionalAuthority: {
			ActionAuthorityCreate, ActionAuthorityList, ActionAuthorityUpdate, ActionAuthorityDelete,
			ActionLotList,
			ActionMoveDistAuthList, ActionMoveDistAuthConfirm,
			ActionMoveAuthUnitCreate, ActionMoveAuthUnitList, ActionMoveAuthUnitUpdate, ActionMoveAuthUnitDelete,
			ActionViewStock, ActionViewAuthorityManagement,
		},
		RoleLocalUnit: {
			ActionUnitCreate, ActionUnitList, ActionUnitUpdate, ActionUnitDelete,
			ActionMoveAuthUnitList, ActionMoveAuthUnitConfirm,
			ActionMoveUnitPatCreate, ActionMoveUnitPatList, ActionMoveUnitPatUpdate, ActionMoveUnitPatDelete,
			ActionViewStock, ActionViewUnitStock,
		},
		RolePatient: {
			ActionPatientCreate, ActionPatientList, ActionPatientUpdate,
			ActionMoveUnitPatList, ActionMoveUnitPatConfirm,
		},
	}

	allowed := make(map[Role]map[Action]struct{}, len(AllRoles))
	for _, role := range AllRoles {
		allowed[role] = make(map[Action]struct{})
	}
	for _, a := range allActions {
		allowed[RoleAdministrator][a] = struct{}{}
	}
	for role, actions := range grants {
		for _, a := range actions {
			allowed[role][a] = struct{}{}
		}
	}
	return &Permissions{allowed: allowed}
}

// Permits reports whether the role may perform the action. Unknown roles
// permit nothing.
func (p *Permissions) Permits(role Role, action Action) bool {
	actions, ok := p.allowed[role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// ActionsFor returns every action granted to the role, for introspection
// endpoints and tests.
func (p *Permissions) ActionsFor(role Role) []Action {
	actions := make([]Action, 0, len(p.allowed[role]))
	for a := range p.allowed[role] {
		actions = append(actions, a)
	}
	return actions
}
