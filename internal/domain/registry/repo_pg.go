package registry

import (
	"context"
	"errors"

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

const entityCols = `id, type, name, document, email, phone, address,
	parent_id, owner_actor_id, created_at, updated_at`

func scanEntity(row pgx.Row) (*Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Type, &e.Name, &e.Document, &e.Email, &e.Phone, &e.Address,
		&e.ParentID, &e.OwnerActorID, &e.CreatedAt, &e.UpdatedAt)
	return &e, mapEntityErr(err, "entity")
}

// mapEntityErr translates pgx errors into the service taxonomy. Unique
// violations mean a second entity for the same actor; foreign-key violations
// mean the row is referenced by catalog or handoff history.
func mapEntityErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fault.NotFound("%s not found", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fault.Conflict("actor already owns an entity")
		case "23503":
			return fault.Conflict("entity is referenced by existing records")
		}
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, e *Entity) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO entity (id, type, name, document, email, phone, address, parent_id, owner_actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		e.ID, e.Type, e.Name, e.Document, e.Email, e.Phone, e.Address, e.ParentID, e.OwnerActorID).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	return mapEntityErr(err, "entity")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entity, error) {
	return scanEntity(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entityCols+` FROM entity WHERE id = $1`, id))
}

func (r *repoPG) GetByOwner(ctx context.Context, ownerActorID string) (*Entity, error) {
	return scanEntity(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entityCols+` FROM entity WHERE owner_actor_id = $1`, ownerActorID))
}

func (r *repoPG) List(ctx context.Context, t EntityType, limit, offset int) ([]*Entity, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM entity WHERE type = $1`, t).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entityCols+` FROM entity WHERE type = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		t, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, e *Entity) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE entity SET name=$2, email=$3, phone=$4, address=$5, updated_at=NOW()
		WHERE id = $1`,
		e.ID, e.Name, e.Email, e.Phone, e.Address)
	if err != nil {
		return mapEntityErr(err, "entity")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("entity not found")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM entity WHERE id = $1`, id)
	if err != nil {
		return mapEntityErr(err, "entity")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("entity not found")
	}
	return nil
}
