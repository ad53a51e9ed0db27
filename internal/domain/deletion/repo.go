package deletion

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists deletion requests. The transition methods are
// conditional on the expected prior state so concurrent callers cannot both
// apply the same transition; a method that matched no row reports the
// appropriate sentinel error.
type Repository interface {
	// Create inserts a new pending request. A pending request already
	// covering the same medical record yields ErrDuplicatePending.
	Create(ctx context.Context, r *Request) error

	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// MarkUserResponded moves pending → next (user_approved or
	// user_rejected), setting user_responded_at and patient_response once.
	// ErrRequestNotFound if the id is unknown, ErrAlreadyResponded if the
	// request is no longer pending.
	MarkUserResponded(ctx context.Context, id uuid.UUID, next Status, respondedAt time.Time, comment string) (*Request, error)

	// MarkAdminConfirmed moves user_approved → next (admin_confirmed or
	// admin_rejected). ErrRequestNotFound or ErrNotAwaitingAdmin.
	MarkAdminConfirmed(ctx context.Context, id uuid.UUID, next Status, confirmedAt time.Time, comment string) (*Request, error)

	// MarkDismissed sets the dismissal flag once, regardless of status.
	// ErrRequestNotFound or ErrAlreadyDismissed.
	MarkDismissed(ctx context.Context, id uuid.UUID, dismissedAt time.Time) (*Request, error)

	ListByPatient(ctx context.Context, indexNo string) ([]*Request, error)
	ListAll(ctx context.Context) ([]*Request, error)
	ListPendingAdminConfirmation(ctx context.Context) ([]*Request, error)
	CountPending(ctx context.Context, indexNo string) (int, error)

	// DeleteByStatuses bulk-removes rows in any of the given statuses and
	// returns how many were removed.
	DeleteByStatuses(ctx context.Context, statuses []Status) (int64, error)

	// Delete removes one request unconditionally.
	Delete(ctx context.Context, id uuid.UUID) error
}
