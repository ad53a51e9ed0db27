package notification

import (
	"context"
	"errors"

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

const cols = `id, recipient, category, type, source_id, message, read, created_at`

func (r *repoPG) Insert(ctx context.Context, n *Notification) (bool, error) {
	n.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notification (id, recipient, category, type, source_id, message)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (recipient, type, source_id) DO NOTHING`,
		n.ID, n.Recipient, n.Category, n.Type, n.SourceID, n.Message)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var n Notification
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM notification WHERE id = $1`, id).
		Scan(&n.ID, &n.Recipient, &n.Category, &n.Type, &n.SourceID, &n.Message, &n.Read, &n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	filter := ``
	if unreadOnly {
		filter = ` AND read = FALSE`
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE recipient = $1`+filter, recipient).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM notification
		WHERE recipient = $1`+filter+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, recipient, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Category, &n.Type, &n.SourceID,
			&n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &n)
	}
	return items, total, nil
}

func (r *repoPG) CountUnread(ctx context.Context, recipient string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notification WHERE recipient = $1 AND read = FALSE`, recipient).Scan(&n)
	return n, err
}

func (r *repoPG) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE notification SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *repoPG) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notification SET read = TRUE WHERE recipient = $1 AND read = FALSE`, recipient)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM notification WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
