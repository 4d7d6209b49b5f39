package movement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows a handoff listing. Kind is required; the rest are optional
// conjunctive conditions.
type Filter struct {
	Kind                Kind
	Status              *Status
	LotID               *uuid.UUID
	OriginEntityID      *uuid.UUID
	DestinationEntityID *uuid.UUID
}

// Repository persists handoffs. Confirm and CancelPending are conditional
// single-statement writes keyed on IN_TRANSIT status; the boolean reports
// whether the row was won. Absent rows surface as fault.NotFound.
type Repository interface {
	Create(ctx context.Context, h *Handoff) error
	GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*Handoff, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Handoff, int, error)
	// UpdateMutable writes quantity and note while the row is IN_TRANSIT;
	// false when the row was already RECEIVED.
	UpdateMutable(ctx context.Context, h *Handoff) (bool, error)
	Confirm(ctx context.Context, kind Kind, id uuid.UUID, receivedAt time.Time) (bool, error)
	CancelPending(ctx context.Context, kind Kind, id uuid.UUID) (bool, error)
	// CountReceivedInbound counts RECEIVED handoffs of the kind delivering
	// the lot to the entity. Used by the chain-continuity policy.
	CountReceivedInbound(ctx context.Context, kind Kind, lotID, entityID uuid.UUID) (int, error)
}
