package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MedicationRepository persists catalog products. Absent rows surface as
// fault.NotFound; deleting a medication with lots surfaces as fault.Conflict.
type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	List(ctx context.Context, manufacturerID *uuid.UUID, limit, offset int) ([]*Medication, int, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LotRepository persists manufactured batches. Deleting a lot referenced by
// a handoff surfaces as fault.Conflict.
type LotRepository interface {
	Create(ctx context.Context, l *Lot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lot, error)
	List(ctx context.Context, medicationID *uuid.UUID, limit, offset int) ([]*Lot, int, error)
	// ListExpiringBy returns unexpired lots whose expiry date falls on or
	// before the deadline, optionally restricted to one manufacturer.
	ListExpiringBy(ctx context.Context, now, deadline time.Time, manufacturerID *uuid.UUID) ([]*Lot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
