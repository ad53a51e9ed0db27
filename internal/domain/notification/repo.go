package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert stores a notification. Duplicate (recipient, type, source_id)
	// triples are silently ignored; the returned bool reports whether a row
	// was actually written.
	Insert(ctx context.Context, n *Notification) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	CountUnread(ctx context.Context, recipient string) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
