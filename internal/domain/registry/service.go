package registry

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

type Service struct {
	repo  Repository
	perms *auth.Permissions
}

func NewService(repo Repository, perms *auth.Permissions) *Service {
	return &Service{repo: repo, perms: perms}
}

func actionFor(t EntityType, verb string) auth.Action {
	switch t {
	case TypeManufacturer:
		return auth.Action("manufacturer." + verb)
	case TypeDistributor:
		return auth.Action("distributor." + verb)
	case TypeAuthority:
		return auth.Action("authority." + verb)
	case TypeUnit:
		return auth.Action("unit." + verb)
	case TypePatient:
		return auth.Action("patient." + verb)
	}
	return ""
}

func (s *Service) permit(actor auth.Actor, t EntityType, verb string) error {
	if !s.perms.Permits(actor.Role, actionFor(t, verb)) {
		return fault.Forbidden("role %s may not %s %s records", actor.Role, verb, t)
	}
	return nil
}

// Create registers a new participant. Non-administrative actors register
// themselves: the row's type must match their role, the owner is the actor,
// and a second registration for the same actor is a Conflict. Administrators
// may register on behalf of any actor by supplying owner_actor_id.
func (s *Service) Create(ctx context.Context, actor auth.Actor, e *Entity) (*Entity, error) {
	if err := s.permit(actor, e.Type, "create"); err != nil {
		return nil, err
	}
	if e.Name == "" {
		return nil, fault.Validation("name is required")
	}
	if e.Document == "" {
		return nil, fault.Validation("document is required")
	}

	if !actor.Role.IsAdmin() {
		want, _ := TypeForRole(actor.Role)
		if e.Type != want {
			return nil, fault.Forbidden("role %s may only register a %s", actor.Role, want)
		}
		e.OwnerActorID = actor.ID
	}
	if e.OwnerActorID == "" {
		return nil, fault.Validation("owner_actor_id is required")
	}

	if _, err := s.repo.GetByOwner(ctx, e.OwnerActorID); err == nil {
		return nil, fault.Conflict("actor already owns an entity")
	} else if !fault.IsKind(err, fault.KindNotFound) {
		return nil, err
	}

	wantParent, needsParent := ParentTypeFor(e.Type)
	if needsParent {
		if e.ParentID == nil {
			return nil, fault.Validation("%s requires a parent %s", e.Type, wantParent)
		}
		parent, err := s.repo.GetByID(ctx, *e.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Type != wantParent {
			return nil, fault.Validation("parent of a %s must be a %s", e.Type, wantParent)
		}
	} else if e.ParentID != nil {
		return nil, fault.Validation("%s is a top-level entity", e.Type)
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, t EntityType, id uuid.UUID) (*Entity, error) {
	if err := s.permit(actor, t, "list"); err != nil {
		return nil, err
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Type != t {
		return nil, fault.NotFound("%s not found", t)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, t EntityType, limit, offset int) ([]*Entity, int, error) {
	if err := s.permit(actor, t, "list"); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, t, limit, offset)
}

// Own returns the actor's registered entity, or Conflict when the actor has
// not finished registration.
func (s *Service) Own(ctx context.Context, actor auth.Actor) (*Entity, error) {
	e, err := s.repo.GetByOwner(ctx, actor.ID)
	if fault.IsKind(err, fault.KindNotFound) {
		return nil, fault.Conflict("finish registration before performing this operation")
	}
	return e, err
}

// Update changes display attributes only. Type, owner and parent are fixed at
// creation. Non-administrative actors may update only their own row.
func (s *Service) Update(ctx context.Context, actor auth.Actor, t EntityType, id uuid.UUID, upd *Entity) (*Entity, error) {
	if err := s.permit(actor, t, "update"); err != nil {
		return nil, err
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Type != t {
		return nil, fault.NotFound("%s not found", t)
	}
	if !actor.Role.IsAdmin() && e.OwnerActorID != actor.ID {
		return nil, fault.Forbidden("entity belongs to another actor")
	}

	if upd.Name != "" {
		e.Name = upd.Name
	}
	if upd.Email != "" {
		e.Email = upd.Email
	}
	if upd.Phone != nil {
		e.Phone = upd.Phone
	}
	if upd.Address != nil {
		e.Address = upd.Address
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an unreferenced entity. Rows referenced by catalog or
// handoff history are protected by foreign keys and surface as Conflict.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, t EntityType, id uuid.UUID) error {
	if err := s.permit(actor, t, "delete"); err != nil {
		return err
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.Type != t {
		return fault.NotFound("%s not found", t)
	}
	if !actor.Role.IsAdmin() && e.OwnerActorID != actor.ID {
		return fault.Forbidden("entity belongs to another actor")
	}
	return s.repo.Delete(ctx, id)
}
