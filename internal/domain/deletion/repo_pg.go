package deletion

import (
	"context"
	"errors"
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

const cols = `id, medical_record_id, patient_index_no, patient_email, admin_id, admin_name,
	reason, status, requested_at, user_responded_at, patient_response,
	admin_confirmed_at, admin_final_response, dismissed_by_patient, dismissed_at`

func scan(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.MedicalRecordID, &req.PatientIndexNo, &req.PatientEmail,
		&req.AdminID, &req.AdminName, &req.Reason, &req.Status, &req.RequestedAt,
		&req.UserRespondedAt, &req.PatientResponse,
		&req.AdminConfirmedAt, &req.AdminFinalResponse,
		&req.DismissedByPatient, &req.DismissedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO deletion_request (id, medical_record_id, patient_index_no, patient_email,
			admin_id, admin_name, reason, status, requested_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		req.ID, req.MedicalRecordID, req.PatientIndexNo, req.PatientEmail,
		req.AdminID, req.AdminName, req.Reason, req.Status, req.RequestedAt)
	// The partial unique index on (medical_record_id) WHERE status='pending'
	// turns a duplicate-pending race into a constraint violation.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicatePending
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM deletion_request WHERE id = $1`, id))
}

func (r *repoPG) MarkUserResponded(ctx context.Context, id uuid.UUID, next Status, respondedAt time.Time, comment string) (*Request, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE deletion_request
		SET status = $2, user_responded_at = $3, patient_response = $4
		WHERE id = $1 AND status = $5
		RETURNING `+cols,
		id, next, respondedAt, comment, StatusPending)
	req, err := scan(row)
	if errors.Is(err, ErrRequestNotFound) {
		return nil, r.transitionFailure(ctx, id, ErrAlreadyResponded)
	}
	return req, err
}

func (r *repoPG) MarkAdminConfirmed(ctx context.Context, id uuid.UUID, next Status, confirmedAt time.Time, comment string) (*Request, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE deletion_request
		SET status = $2, admin_confirmed_at = $3, admin_final_response = $4
		WHERE id = $1 AND status = $5
		RETURNING `+cols,
		id, next, confirmedAt, comment, StatusUserApproved)
	req, err := scan(row)
	if errors.Is(err, ErrRequestNotFound) {
		return nil, r.transitionFailure(ctx, id, ErrNotAwaitingAdmin)
	}
	return req, err
}

func (r *repoPG) MarkDismissed(ctx context.Context, id uuid.UUID, dismissedAt time.Time) (*Request, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE deletion_request
		SET dismissed_by_patient = TRUE, dismissed_at = $2
		WHERE id = $1 AND dismissed_by_patient = FALSE
		RETURNING `+cols,
		id, dismissedAt)
	req, err := scan(row)
	if errors.Is(err, ErrRequestNotFound) {
		return nil, r.transitionFailure(ctx, id, ErrAlreadyDismissed)
	}
	return req, err
}

// transitionFailure distinguishes a missing row from a conditional update
// that matched nothing because the request is in the wrong state.
func (r *repoPG) transitionFailure(ctx context.Context, id uuid.UUID, stateErr error) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return stateErr
}

func (r *repoPG) ListByPatient(ctx context.Context, indexNo string) ([]*Request, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM deletion_request
		WHERE patient_index_no = $1 AND dismissed_by_patient = FALSE
		ORDER BY requested_at DESC`, indexNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) ListAll(ctx context.Context) ([]*Request, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM deletion_request ORDER BY requested_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) ListPendingAdminConfirmation(ctx context.Context) ([]*Request, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM deletion_request
		WHERE status = $1
		ORDER BY user_responded_at DESC`, StatusUserApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) CountPending(ctx context.Context, indexNo string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM deletion_request
		WHERE patient_index_no = $1 AND status = $2 AND dismissed_by_patient = FALSE`,
		indexNo, StatusPending).Scan(&n)
	return n, err
}

func (r *repoPG) DeleteByStatuses(ctx context.Context, statuses []Status) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM deletion_request WHERE status = ANY($1)`, values)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM deletion_request WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRequestNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]*Request, error) {
	var items []*Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.MedicalRecordID, &req.PatientIndexNo, &req.PatientEmail,
			&req.AdminID, &req.AdminName, &req.Reason, &req.Status, &req.RequestedAt,
			&req.UserRespondedAt, &req.PatientResponse,
			&req.AdminConfirmedAt, &req.AdminFinalResponse,
			&req.DismissedByPatient, &req.DismissedAt); err != nil {
			return nil, err
		}
		items = append(items, &req)
	}
	return items, rows.Err()
}
