package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository reads aggregate projections off the custody tables. Counts come
// back raw; derived figures (on-hand, delivery rate) are the service's job.
type Repository interface {
	ManufacturerOverview(ctx context.Context, manufacturerID uuid.UUID, now time.Time, lookaheadDays int) (*ManufacturerOverview, error)
	DistributorLogistics(ctx context.Context, distributorID uuid.UUID) (*DistributorLogistics, error)
	AuthorityManagement(ctx context.Context, authorityID uuid.UUID, now time.Time, lookaheadDays int) (*AuthorityManagement, error)
	UnitStock(ctx context.Context, unitID uuid.UUID) (*UnitStock, error)
}
