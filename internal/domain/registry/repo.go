package registry

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists entities. Implementations surface absent rows as
// fault.NotFound, owner collisions and referenced-row deletions as
// fault.Conflict.
type Repository interface {
	Create(ctx context.Context, e *Entity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entity, error)
	GetByOwner(ctx context.Context, ownerActorID string) (*Entity, error)
	List(ctx context.Context, t EntityType, limit, offset int) ([]*Entity, int, error)
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, id uuid.UUID) error
}
