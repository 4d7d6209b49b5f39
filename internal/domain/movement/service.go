package movement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/domain/registry"
	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

// EntityDirectory resolves registry rows referenced by handoffs. Wired from
// the registry package in main.
type EntityDirectory interface {
	// EntityType returns the type of the entity, fault.NotFound when absent.
	EntityType(ctx context.Context, id uuid.UUID) (registry.EntityType, error)
}

// LotDirectory resolves catalog lots. Wired from the catalog package in main.
type LotDirectory interface {
	// LotExists returns fault.NotFound when no lot carries the id.
	LotExists(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo     Repository
	entities EntityDirectory
	lots     LotDirectory
	perms    *auth.Permissions
	// enforceChain gates creation on a confirmed upstream receipt of the
	// same lot at the origin. Administrators are exempt.
	enforceChain bool
	now          func() time.Time
}

func NewService(repo Repository, entities EntityDirectory, lots LotDirectory, perms *auth.Permissions, enforceChain bool) *Service {
	return &Service{
		repo:         repo,
		entities:     entities,
		lots:         lots,
		perms:        perms,
		enforceChain: enforceChain,
		now:          time.Now,
	}
}

func (s *Service) permit(actor auth.Actor, action auth.Action) error {
	if !s.perms.Permits(actor.Role, action) {
		return fault.Forbidden("role %s may not perform %s", actor.Role, action)
	}
	return nil
}

func ownEntity(actor auth.Actor) (uuid.UUID, error) {
	if actor.EntityID == nil {
		return uuid.Nil, fault.Conflict("finish registration before performing this operation")
	}
	return *actor.EntityID, nil
}

// Create registers a handoff in transit. Non-admin senders always ship from
// their own entity; administrators must name the origin explicitly.
func (s *Service) Create(ctx context.Context, actor auth.Actor, kind Kind, h *Handoff) (*Handoff, error) {
	b := kind.binding()
	if err := s.permit(actor, b.createAction); err != nil {
		return nil, err
	}

	if actor.Role.IsAdmin() {
		if h.OriginEntityID == uuid.Nil {
			return nil, fault.Validation("origin_entity_id is required")
		}
	} else {
		own, err := ownEntity(actor)
		if err != nil {
			return nil, err
		}
		if h.OriginEntityID != uuid.Nil && h.OriginEntityID != own {
			return nil, fault.Forbidden("origin must be your own entity")
		}
		h.OriginEntityID = own
	}
	if h.DestinationEntityID == uuid.Nil {
		return nil, fault.Validation("destination_entity_id is required")
	}
	if h.LotID == uuid.Nil {
		return nil, fault.Validation("lot_id is required")
	}
	if h.Quantity != nil && *h.Quantity <= 0 {
		return nil, fault.Validation("quantity must be positive")
	}

	if err := s.lots.LotExists(ctx, h.LotID); err != nil {
		return nil, err
	}
	if err := s.requireEntityType(ctx, h.OriginEntityID, b.originType, "origin"); err != nil {
		return nil, err
	}
	if err := s.requireEntityType(ctx, h.DestinationEntityID, b.destinationType, "destination"); err != nil {
		return nil, err
	}

	if s.enforceChain && !actor.Role.IsAdmin() {
		if upstream, ok := kind.upstream(); ok {
			n, err := s.repo.CountReceivedInbound(ctx, upstream, h.LotID, h.OriginEntityID)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, fault.Conflict("lot has no confirmed receipt at the origin entity")
			}
		}
	}

	h.Kind = kind
	h.Status = StatusInTransit
	h.SentAt = s.now()
	h.ReceivedAt = nil

	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) requireEntityType(ctx context.Context, id uuid.UUID, want registry.EntityType, side string) error {
	typ, err := s.entities.EntityType(ctx, id)
	if err != nil {
		return err
	}
	if typ != want {
		return fault.Validation("%s must be a %s entity", side, want)
	}
	return nil
}

// Get returns the handoff when the actor stands at either end of it.
func (s *Service) Get(ctx context.Context, actor auth.Actor, kind Kind, id uuid.UUID) (*Handoff, error) {
	b := kind.binding()
	if err := s.permit(actor, b.listAction); err != nil {
		return nil, err
	}
	h, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireVisible(actor, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) requireVisible(actor auth.Actor, h *Handoff) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	own, err := ownEntity(actor)
	if err != nil {
		return err
	}
	b := h.Kind.binding()
	switch {
	case actor.Role == b.originRole && h.OriginEntityID == own:
		return nil
	case actor.Role == b.destinationRole && h.DestinationEntityID == own:
		return nil
	}
	return fault.Forbidden("handoff involves another entity")
}

// List returns the actor's slice of the stage: origin roles see what they
// sent, destination roles what is addressed to them, administrators all rows.
func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, limit, offset int) ([]*Handoff, int, error) {
	b := f.Kind.binding()
	if err := s.permit(actor, b.listAction); err != nil {
		return nil, 0, err
	}
	if !actor.Role.IsAdmin() {
		own, err := ownEntity(actor)
		if err != nil {
			return nil, 0, err
		}
		// Pinning the actor's own end keeps the scope; the opposite end
		// stays a free filter.
		switch actor.Role {
		case b.originRole:
			f.OriginEntityID = &own
		case b.destinationRole:
			f.DestinationEntityID = &own
		}
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Update rewrites quantity and note while the handoff is still in transit.
func (s *Service) Update(ctx context.Context, actor auth.Actor, kind Kind, id uuid.UUID, quantity *int, note *string) (*Handoff, error) {
	b := kind.binding()
	if err := s.permit(actor, b.updateAction); err != nil {
		return nil, err
	}
	h, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if h.Status != StatusInTransit {
		return nil, fault.Conflict("handoff was already received")
	}
	if err := s.requireOrigin(actor, h); err != nil {
		return nil, err
	}

	if quantity != nil {
		if *quantity <= 0 {
			return nil, fault.Validation("quantity must be positive")
		}
		h.Quantity = quantity
	}
	if note != nil {
		h.Note = note
	}

	won, err := s.repo.UpdateMutable(ctx, h)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fault.Conflict("handoff was already received")
	}
	return h, nil
}

// Cancel deletes a handoff that has not been received yet.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, kind Kind, id uuid.UUID) error {
	b := kind.binding()
	if err := s.permit(actor, b.deleteAction); err != nil {
		return err
	}
	h, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}
	if h.Status != StatusInTransit {
		return fault.Conflict("handoff was already received")
	}
	if err := s.requireOrigin(actor, h); err != nil {
		return err
	}

	won, err := s.repo.CancelPending(ctx, kind, id)
	if err != nil {
		return err
	}
	if !won {
		return fault.Conflict("handoff was already received")
	}
	return nil
}

// Confirm moves the handoff to RECEIVED. Only the destination entity may
// confirm, and only once: a concurrent duplicate loses the conditional
// update and gets Conflict.
func (s *Service) Confirm(ctx context.Context, actor auth.Actor, kind Kind, id uuid.UUID) (*Handoff, error) {
	b := kind.binding()
	if err := s.permit(actor, b.confirmAction); err != nil {
		return nil, err
	}
	h, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if h.Status != StatusInTransit {
		return nil, fault.Conflict("handoff was already received")
	}
	if err := s.requireDestination(actor, h); err != nil {
		return nil, err
	}

	receivedAt := s.now()
	won, err := s.repo.Confirm(ctx, kind, id, receivedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fault.Conflict("handoff was already received")
	}
	h.Status = StatusReceived
	h.ReceivedAt = &receivedAt
	return h, nil
}

func (s *Service) requireOrigin(actor auth.Actor, h *Handoff) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	own, err := ownEntity(actor)
	if err != nil {
		return err
	}
	if h.OriginEntityID != own {
		return fault.Forbidden("handoff was sent by another entity")
	}
	return nil
}

func (s *Service) requireDestination(actor auth.Actor, h *Handoff) error {
	if actor.Role.IsAdmin() {
		return nil
	}
	own, err := ownEntity(actor)
	if err != nil {
		return err
	}
	if h.DestinationEntityID != own {
		return fault.Forbidden("handoff is addressed to another entity")
	}
	return nil
}
