package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medtrace/medtrace/internal/platform/auth"
	"github.com/medtrace/medtrace/internal/platform/fault"
)

type Service struct {
	repo  Repository
	perms *auth.Permissions
	// expiry lookaheads per stage, from config.
	manufacturerDays int
	authorityDays    int
	now              func() time.Time
}

func NewService(repo Repository, perms *auth.Permissions, manufacturerDays, authorityDays int) *Service {
	return &Service{
		repo:             repo,
		perms:            perms,
		manufacturerDays: manufacturerDays,
		authorityDays:    authorityDays,
		now:              time.Now,
	}
}

// scope resolves which entity the dashboard covers: non-admins always their
// own, admins whichever entity they name.
func (s *Service) scope(actor auth.Actor, action auth.Action, requested *uuid.UUID) (uuid.UUID, error) {
	if !s.perms.Permits(actor.Role, action) {
		return uuid.Nil, fault.Forbidden("role %s may not perform %s", actor.Role, action)
	}
	if actor.Role.IsAdmin() {
		if requested == nil {
			return uuid.Nil, fault.Validation("entity_id is required")
		}
		return *requested, nil
	}
	if actor.EntityID == nil {
		return uuid.Nil, fault.Conflict("finish registration before performing this operation")
	}
	return *actor.EntityID, nil
}

func (s *Service) ManufacturerOverview(ctx context.Context, actor auth.Actor, requested *uuid.UUID) (*ManufacturerOverview, error) {
	id, err := s.scope(actor, auth.ActionViewManufacturerOverview, requested)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.ManufacturerOverview(ctx, id, s.now(), s.manufacturerDays)
	if err != nil {
		return nil, err
	}
	if o.Lots > 0 {
		o.DeliveryRate = float64(o.DeliveredToPatients) / float64(o.Lots)
	}
	return o, nil
}

func (s *Service) DistributorLogistics(ctx context.Context, actor auth.Actor, requested *uuid.UUID) (*DistributorLogistics, error) {
	id, err := s.scope(actor, auth.ActionViewDistributorLogistics, requested)
	if err != nil {
		return nil, err
	}
	return s.repo.DistributorLogistics(ctx, id)
}

func (s *Service) AuthorityManagement(ctx context.Context, actor auth.Actor, requested *uuid.UUID) (*AuthorityManagement, error) {
	id, err := s.scope(actor, auth.ActionViewAuthorityManagement, requested)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.AuthorityManagement(ctx, id, s.now(), s.authorityDays)
	if err != nil {
		return nil, err
	}
	a.OnHand = a.Received - a.Forwarded
	return a, nil
}

func (s *Service) UnitStock(ctx context.Context, actor auth.Actor, requested *uuid.UUID) (*UnitStock, error) {
	id, err := s.scope(actor, auth.ActionViewUnitStock, requested)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.UnitStock(ctx, id)
	if err != nil {
		return nil, err
	}
	u.OnHand = u.Received - u.Dispensed
	return u, nil
}
