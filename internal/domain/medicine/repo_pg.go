package medicine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kdu-mi/miu-server/internal/platform/db"
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

const cols = `id, name, batch_no, quantity, unit, expires_at, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.BatchNo, &m.Quantity, &m.Unit,
		&m.ExpiresAt, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMedicineNotFound
	}
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medicine (id, name, batch_no, quantity, unit, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.Name, m.BatchNo, m.Quantity, m.Unit, m.ExpiresAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM medicine WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Medicine) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medicine SET name=$2, batch_no=$3, quantity=$4, unit=$5, expires_at=$6, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.BatchNo, m.Quantity, m.Unit, m.ExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicineNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Medicine, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medicine`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM medicine ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) Search(ctx context.Context, term string, limit, offset int) ([]*Medicine, int, error) {
	pattern := fmt.Sprintf("%%%s%%", term)
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medicine WHERE name ILIKE $1 OR batch_no ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM medicine
		WHERE name ILIKE $1 OR batch_no ILIKE $1
		ORDER BY name LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error) {
	// Conditional update keeps the stock floor at zero without a
	// read-modify-write race.
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE medicine SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING `+cols, id, delta)
	m, err := r.scan(row)
	if errors.Is(err, ErrMedicineNotFound) {
		// Either the row is missing or the stock would go negative.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientStock
	}
	return m, err
}

func (r *repoPG) ListLowStock(ctx context.Context, threshold int) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM medicine WHERE quantity <= $1 ORDER BY quantity`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, _, err := collect(rows, 0)
	return items, err
}

func (r *repoPG) ListExpiring(ctx context.Context, before time.Time) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM medicine WHERE expires_at IS NOT NULL AND expires_at <= $1 ORDER BY expires_at`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, _, err := collect(rows, 0)
	return items, err
}

func collect(rows pgx.Rows, total int) ([]*Medicine, int, error) {
	var items []*Medicine
	for rows.Next() {
		var m Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.BatchNo, &m.Quantity, &m.Unit,
			&m.ExpiresAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &m)
	}
	return items, total, nil
}
