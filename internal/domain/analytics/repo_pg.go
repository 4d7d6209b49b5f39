package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrace/medtrace/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) ManufacturerOverview(ctx context.Context, manufacturerID uuid.UUID, now time.Time, lookaheadDays int) (*ManufacturerOverview, error) {
	o := &ManufacturerOverview{LookaheadDays: lookaheadDays}
	deadline := now.AddDate(0, 0, lookaheadDays)
	q := r.conn(ctx)

	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM medication WHERE manufacturer_id = $1`,
		manufacturerID).Scan(&o.Medications)
	if err != nil {
		return nil, err
	}

	err = q.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE l.expiry_date <= $2),
		       COUNT(*) FILTER (WHERE l.expiry_date > $2 AND l.expiry_date <= $3)
		FROM lot l
		JOIN medication m ON m.id = l.medication_id
		WHERE m.manufacturer_id = $1`,
		manufacturerID, now, deadline).Scan(&o.Lots, &o.ExpiredLots, &o.ExpiringSoonLots)
	if err != nil {
		return nil, err
	}

	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE h.kind = 'distributor-to-authority' AND h.status = 'IN_TRANSIT'),
		       COUNT(*) FILTER (WHERE h.kind = 'authority-to-unit'        AND h.status = 'IN_TRANSIT'),
		       COUNT(*) FILTER (WHERE h.kind = 'unit-to-patient'          AND h.status = 'IN_TRANSIT'),
		       COUNT(*) FILTER (WHERE h.kind = 'unit-to-patient'          AND h.status = 'RECEIVED')
		FROM handoff h
		JOIN lot l ON l.id = h.lot_id
		JOIN medication m ON m.id = l.medication_id
		WHERE m.manufacturer_id = $1`,
		manufacturerID).Scan(&o.InTransitToAuthority, &o.InTransitToUnit, &o.InTransitToPatient, &o.DeliveredToPatients)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repoPG) DistributorLogistics(ctx context.Context, distributorID uuid.UUID) (*DistributorLogistics, error) {
	d := &DistributorLogistics{}
	q := r.conn(ctx)

	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'IN_TRANSIT'),
		       COUNT(*) FILTER (WHERE status = 'RECEIVED'),
		       COALESCE(AVG(FLOOR(EXTRACT(EPOCH FROM (received_at - sent_at)) / 86400))
		                FILTER (WHERE status = 'RECEIVED'), 0)
		FROM handoff
		WHERE kind = 'distributor-to-authority' AND origin_entity_id = $1`,
		distributorID).Scan(&d.Pending, &d.Completed, &d.MeanDeliveryDays)
	if err != nil {
		return nil, err
	}

	d.RecentPending, err = r.recentHandoffs(ctx, "distributor-to-authority", distributorID, "IN_TRANSIT")
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repoPG) AuthorityManagement(ctx context.Context, authorityID uuid.UUID, now time.Time, lookaheadDays int) (*AuthorityManagement, error) {
	a := &AuthorityManagement{}
	q := r.conn(ctx)

	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE kind = 'distributor-to-authority' AND destination_entity_id = $1 AND status = 'RECEIVED'),
		       COUNT(*) FILTER (WHERE kind = 'authority-to-unit'        AND origin_entity_id = $1),
		       COUNT(*) FILTER (WHERE kind = 'authority-to-unit'        AND origin_entity_id = $1 AND status = 'IN_TRANSIT')
		FROM handoff
		WHERE destination_entity_id = $1 OR origin_entity_id = $1`,
		authorityID).Scan(&a.Received, &a.Forwarded, &a.Committed)
	if err != nil {
		return nil, err
	}

	a.Watchlist, err = r.expiryWatchlist(ctx, authorityID, now, lookaheadDays)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) UnitStock(ctx context.Context, unitID uuid.UUID) (*UnitStock, error) {
	u := &UnitStock{}
	q := r.conn(ctx)

	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE kind = 'authority-to-unit' AND destination_entity_id = $1 AND status = 'RECEIVED'),
		       COUNT(*) FILTER (WHERE kind = 'unit-to-patient'   AND origin_entity_id = $1),
		       COUNT(*) FILTER (WHERE kind = 'unit-to-patient'   AND origin_entity_id = $1 AND status = 'IN_TRANSIT')
		FROM handoff
		WHERE destination_entity_id = $1 OR origin_entity_id = $1`,
		unitID).Scan(&u.Received, &u.Dispensed, &u.Committed)
	if err != nil {
		return nil, err
	}

	u.RecentDispenses, err = r.recentHandoffs(ctx, "unit-to-patient", unitID, "")
	if err != nil {
		return nil, err
	}
	return u, nil
}

// recentHandoffs returns the ten newest outbound handoffs of the kind, with
// lot code and destination name joined in. Empty status means any.
func (r *repoPG) recentHandoffs(ctx context.Context, kind string, originID uuid.UUID, status string) ([]HandoffSummary, error) {
	query := `
		SELECT h.id, h.lot_id, l.code, h.destination_entity_id, e.name,
		       h.quantity, h.sent_at, h.received_at
		FROM handoff h
		JOIN lot l ON l.id = h.lot_id
		JOIN entity e ON e.id = h.destination_entity_id
		WHERE h.kind = $1 AND h.origin_entity_id = $2`
	args := []interface{}{kind, originID}
	if status != "" {
		query += ` AND h.status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY h.sent_at DESC LIMIT 10`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HandoffSummary
	for rows.Next() {
		var s HandoffSummary
		if err := rows.Scan(&s.ID, &s.LotID, &s.LotCode, &s.DestinationID, &s.DestinationName,
			&s.Quantity, &s.SentAt, &s.ReceivedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// expiryWatchlist lists unexpired lots confirmed into the entity's custody
// whose expiry falls within the lookahead window.
func (r *repoPG) expiryWatchlist(ctx context.Context, entityID uuid.UUID, now time.Time, lookaheadDays int) ([]ExpiryAlert, error) {
	deadline := now.AddDate(0, 0, lookaheadDays)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT l.id, l.code, m.name, l.expiry_date, l.initial_quantity
		FROM lot l
		JOIN medication m ON m.id = l.medication_id
		JOIN handoff h ON h.lot_id = l.id
		WHERE h.destination_entity_id = $1 AND h.status = 'RECEIVED'
		  AND l.expiry_date > $2 AND l.expiry_date <= $3
		ORDER BY l.expiry_date`,
		entityID, now, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []ExpiryAlert
	for rows.Next() {
		var a ExpiryAlert
		if err := rows.Scan(&a.LotID, &a.LotCode, &a.MedicationName, &a.ExpiryDate, &a.Quantity); err != nil {
			return nil, err
		}
		a.DaysRemaining = int(a.ExpiryDate.Sub(now).Hours() / 24)
		a.Relocate = a.Quantity > relocateThreshold
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
