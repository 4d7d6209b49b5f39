package movement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrace/medtrace/internal/platform/db"
	"github.com/medtrace/medtrace/internal/platform/fault"
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

const handoffCols = `id, kind, lot_id, origin_entity_id, destination_entity_id,
	quantity, note, status, sent_at, received_at`

func scanHandoff(row pgx.Row) (*Handoff, error) {
	var h Handoff
	err := row.Scan(&h.ID, &h.Kind, &h.LotID, &h.OriginEntityID, &h.DestinationEntityID,
		&h.Quantity, &h.Note, &h.Status, &h.SentAt, &h.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fault.NotFound("handoff not found")
		}
		return nil, err
	}
	return &h, nil
}

func (r *repoPG) Create(ctx context.Context, h *Handoff) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO handoff (id, kind, lot_id, origin_entity_id, destination_entity_id,
			quantity, note, status, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		h.ID, h.Kind, h.LotID, h.OriginEntityID, h.DestinationEntityID,
		h.Quantity, h.Note, h.Status, h.SentAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fault.NotFound("referenced lot or entity not found")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, kind Kind, id uuid.UUID) (*Handoff, error) {
	return scanHandoff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+handoffCols+` FROM handoff WHERE id = $1 AND kind = $2`, id, kind))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Handoff, int, error) {
	where := ` WHERE kind = $1`
	args := []interface{}{f.Kind}

	add := func(clause string, v interface{}) {
		args = append(args, v)
		where += ` AND ` + clause + ` = $` + strconv.Itoa(len(args))
	}
	if f.Status != nil {
		add("status", *f.Status)
	}
	if f.LotID != nil {
		add("lot_id", *f.LotID)
	}
	if f.OriginEntityID != nil {
		add("origin_entity_id", *f.OriginEntityID)
	}
	if f.DestinationEntityID != nil {
		add("destination_entity_id", *f.DestinationEntityID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM handoff`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + handoffCols + ` FROM handoff` + where +
		` ORDER BY sent_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Handoff
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateMutable(ctx context.Context, h *Handoff) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE handoff SET quantity=$3, note=$4
		WHERE id = $1 AND kind = $2 AND status = 'IN_TRANSIT'`,
		h.ID, h.Kind, h.Quantity, h.Note)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm advances IN_TRANSIT to RECEIVED with a conditional update, making
// the transition atomic per row: the first writer wins, a concurrent
// duplicate affects zero rows.
func (r *repoPG) Confirm(ctx context.Context, kind Kind, id uuid.UUID, receivedAt time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE handoff SET status = 'RECEIVED', received_at = $3
		WHERE id = $1 AND kind = $2 AND status = 'IN_TRANSIT'`,
		id, kind, receivedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) CancelPending(ctx context.Context, kind Kind, id uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM handoff
		WHERE id = $1 AND kind = $2 AND status = 'IN_TRANSIT'`,
		id, kind)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) CountReceivedInbound(ctx context.Context, kind Kind, lotID, entityID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM handoff
		WHERE kind = $1 AND lot_id = $2 AND destination_entity_id = $3 AND status = 'RECEIVED'`,
		kind, lotID, entityID).Scan(&n)
	return n, err
}
