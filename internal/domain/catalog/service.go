package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

// EntityDirectory resolves registry rows the catalog references. Wired from
// the registry package in main.
type EntityDirectory interface {
	// ManufacturerExists returns fault.NotFound when no manufacturer row
	// carries the id.
	ManufacturerExists(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	medications MedicationRepository
	lots        LotRepository
	entities    EntityDirectory
	perms       *auth.Permissions
	now         func() time.Time
}

func NewService(meds MedicationRepository, lots LotRepository, entities EntityDirectory, perms *auth.Permissions) *Service {
	return &Service{
		medications: meds,
		lots:        lots,
		entities:    entities,
		perms:       perms,
		now:         time.Now,
	}
}

func (s *Service) permit(actor auth.Actor, action auth.Action) error {
	if !s.perms.Permits(actor.Role, action) {
		return fault.Forbidden("role %s may not perform %s", actor.Role, action)
	}
	return nil
}

// ownEntity returns the actor's entity id, or Conflict when the actor's role
// requires one and registration is incomplete.
func ownEntity(actor auth.Actor) (uuid.UUID, error) {
	if actor.EntityID == nil {
		return uuid.Nil, fault.Conflict("finish registration before performing this operation")
	}
	return *actor.EntityID, nil
}

// -- Medication --

func (s *Service) CreateMedication(ctx context.Context, actor auth.Actor, m *Medication) (*Medication, error) {
	if err := s.permit(actor, auth.ActionMedicationCreate); err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, fault.Validation("name is required")
	}
	if m.Dosage == "" {
		return nil, fault.Validation("dosage is required")
	}
	if m.Price < 0 {
		return nil, fault.Validation("price cannot be negative")
	}

	if actor.Role.IsAdmin() {
		if m.ManufacturerID == uuid.Nil {
			return nil, fault.Validation("manufacturer_id is required")
		}
		if err := s.entities.ManufacturerExists(ctx, m.ManufacturerID); err != nil {
			return nil, err
		}
	} else {
		own, err := ownEntity(actor)
		if err != nil {
			return nil, err
		}
		m.ManufacturerID = own
	}

	if err := s.medications.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) GetMedication(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Medication, error) {
	if err := s.permit(actor, auth.ActionMedicationList); err != nil {
		return nil, err
	}
	return s.medications.GetByID(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context, actor auth.Actor, manufacturerID *uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	if err := s.permit(actor, auth.ActionMedicationList); err != nil {
		return nil, 0, err
	}
	// Manufacturers see their own catalog only.
	if actor.Role == auth.RoleManufacturer {
		own, err := ownEntity(actor)
		if err != nil {
			return nil, 0, err
		}
		manufacturerID = &own
	}
	return s.medications.List(ctx, manufacturerID, limit, offset)
}

func (s *Service) UpdateMedication(ctx context.Context, actor auth.Actor, id uuid.UUID, upd *Medication) (*Medication, error) {
	if err := s.permit(actor, auth.ActionMedicationUpdate); err != nil {
		return nil, err
	}
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(actor, m.ManufacturerID); err != nil {
		return nil, err
	}

	if upd.Name != "" {
		m.Name = upd.Name
	}
	if upd.Dosage != "" {
		m.Dosage = upd.Dosage
	}
	if upd.Route != "" {
		m.Route = upd.Route
	}
	if upd.Price < 0 {
		return nil, fault.Validation("price cannot be negative")
	}
	if upd.Price > 0 {
		m.Price = upd.Price
	}
	m.HighCost = upd.HighCost

	if err := s.medications.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) DeleteMedication(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := s.permit(actor, auth.ActionMedicationDelete); err != nil {
		return err
	}
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireOwnership(actor, m.ManufacturerID); err != nil {
		return err
	}
	return s.medications.Delete(ctx, id)
}

func (s *Service) requireOwnership(actor auth.Actor, manufacturerID uuid.UUID) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	own, err := ownEntity(actor)
	if err != nil {
		return err
	}
	if own != manufacturerID {
		return fault.Forbidden("medication belongs to another manufacturer")
	}
	return nil
}

// -- Lot --

func (s *Service) CreateLot(ctx context.Context, actor auth.Actor, l *Lot) (*Lot, error) {
	if err := s.permit(actor, auth.ActionLotCreate); err != nil {
		return nil, err
	}
	if l.Code == "" {
		return nil, fault.Validation("code is required")
	}
	if l.InitialQuantity <= 0 {
		return nil, fault.Validation("initial_quantity must be positive")
	}
	if !l.ManufactureDate.Before(l.ExpiryDate) {
		return nil, fault.Validation("manufacture_date must precede expiry_date")
	}

	m, err := s.medications.GetByID(ctx, l.MedicationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(actor, m.ManufacturerID); err != nil {
		return nil, err
	}

	if err := s.lots.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) GetLot(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Lot, error) {
	if err := s.permit(actor, auth.ActionLotList); err != nil {
		return nil, err
	}
	return s.lots.GetByID(ctx, id)
}

func (s *Service) ListLots(ctx context.Context, actor auth.Actor, medicationID *uuid.UUID, limit, offset int) ([]*Lot, int, error) {
	if err := s.permit(actor, auth.ActionLotList); err != nil {
		return nil, 0, err
	}
	return s.lots.List(ctx, medicationID, limit, offset)
}

// ListExpiring returns unexpired lots that expire within the lookahead
// window. Manufacturers are scoped to their own catalog.
func (s *Service) ListExpiring(ctx context.Context, actor auth.Actor, lookaheadDays int) ([]*Lot, error) {
	if err := s.permit(actor, auth.ActionLotList); err != nil {
		return nil, err
	}
	if lookaheadDays <= 0 {
		return nil, fault.Validation("days must be positive")
	}

	var manufacturerID *uuid.UUID
	if actor.Role == auth.RoleManufacturer {
		own, err := ownEntity(actor)
		if err != nil {
			return nil, err
		}
		manufacturerID = &own
	}

	now := s.now()
	return s.lots.ListExpiringBy(ctx, now, now.AddDate(0, 0, lookaheadDays), manufacturerID)
}

func (s *Service) DeleteLot(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := s.permit(actor, auth.ActionLotDelete); err != nil {
		return err
	}
	l, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m, err := s.medications.GetByID(ctx, l.MedicationID)
	if err != nil {
		return err
	}
	if err := s.requireOwnership(actor, m.ManufacturerID); err != nil {
		return err
	}
	return s.lots.Delete(ctx, id)
}
