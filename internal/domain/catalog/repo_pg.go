package catalog

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

func mapCatalogErr(err error, what string) error {
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
			return fault.Conflict("%s already exists", what)
		case "23503":
			return fault.Conflict("%s is referenced by existing records", what)
		}
	}
	return err
}

// =========== Medication Repository ===========

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

func (r *medicationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const medCols = `id, name, dosage, route, manufacturer_id, price, high_cost, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.Dosage, &m.Route, &m.ManufacturerID,
		&m.Price, &m.HighCost, &m.CreatedAt, &m.UpdatedAt)
	return &m, mapCatalogErr(err, "medication")
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication (id, name, dosage, route, manufacturer_id, price, high_cost)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Dosage, m.Route, m.ManufacturerID, m.Price, m.HighCost).
		Scan(&m.CreatedAt, &m.UpdatedAt)
	return mapCatalogErr(err, "medication")
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medication WHERE id = $1`, id))
}

func (r *medicationRepoPG) List(ctx context.Context, manufacturerID *uuid.UUID, limit, offset int) ([]*Medication, int, error) {
	where := ``
	args := []interface{}{}
	if manufacturerID != nil {
		where = ` WHERE manufacturer_id = $1`
		args = append(args, *manufacturerID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medication`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + medCols + ` FROM medication` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication SET name=$2, dosage=$3, route=$4, price=$5, high_cost=$6, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Dosage, m.Route, m.Price, m.HighCost)
	if err != nil {
		return mapCatalogErr(err, "medication")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("medication not found")
	}
	return nil
}

func (r *medicationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medication WHERE id = $1`, id)
	if err != nil {
		return mapCatalogErr(err, "medication")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("medication not found")
	}
	return nil
}

// =========== Lot Repository ===========

type lotRepoPG struct{ pool *pgxpool.Pool }

func NewLotRepoPG(pool *pgxpool.Pool) LotRepository {
	return &lotRepoPG{pool: pool}
}

func (r *lotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const lotCols = `id, medication_id, code, manufacture_date, expiry_date, initial_quantity, created_at`

func scanLot(row pgx.Row) (*Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.MedicationID, &l.Code, &l.ManufactureDate,
		&l.ExpiryDate, &l.InitialQuantity, &l.CreatedAt)
	return &l, mapCatalogErr(err, "lot")
}

func (r *lotRepoPG) Create(ctx context.Context, l *Lot) error {
	l.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lot (id, medication_id, code, manufacture_date, expiry_date, initial_quantity)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		l.ID, l.MedicationID, l.Code, l.ManufactureDate, l.ExpiryDate, l.InitialQuantity).
		Scan(&l.CreatedAt)
	return mapCatalogErr(err, "lot")
}

func (r *lotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lot, error) {
	return scanLot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+lotCols+` FROM lot WHERE id = $1`, id))
}

func (r *lotRepoPG) List(ctx context.Context, medicationID *uuid.UUID, limit, offset int) ([]*Lot, int, error) {
	where := ``
	args := []interface{}{}
	if medicationID != nil {
		where = ` WHERE medication_id = $1`
		args = append(args, *medicationID)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lot`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + lotCols + ` FROM lot` + where +
		` ORDER BY expiry_date ASC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *lotRepoPG) ListExpiringBy(ctx context.Context, now, deadline time.Time, manufacturerID *uuid.UUID) ([]*Lot, error) {
	query := `SELECT ` + lotPrefixedCols + `
		FROM lot l
		WHERE l.expiry_date > $1 AND l.expiry_date <= $2`
	args := []interface{}{now, deadline}
	if manufacturerID != nil {
		query += ` AND l.medication_id IN (SELECT id FROM medication WHERE manufacturer_id = $3)`
		args = append(args, *manufacturerID)
	}
	query += ` ORDER BY l.expiry_date ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const lotPrefixedCols = `l.id, l.medication_id, l.code, l.manufacture_date, l.expiry_date, l.initial_quantity, l.created_at`

func (r *lotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lot WHERE id = $1`, id)
	if err != nil {
		return mapCatalogErr(err, "lot")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("lot not found")
	}
	return nil
}
