package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Emit records a notification for the recipient. Repeated emissions for the
// same event are deduplicated by the repository and are not an error.
func (s *Service) Emit(ctx context.Context, recipient, category, typ, sourceID, message string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	if strings.TrimSpace(typ) == "" {
		return fmt.Errorf("type is required")
	}

	n := &Notification{
		Recipient: recipient,
		Category:  category,
		Type:      typ,
		SourceID:  sourceID,
		Message:   message,
	}
	inserted, err := s.repo.Insert(ctx, n)
	if err != nil {
		return err
	}
	if !inserted {
		s.logger.Debug().
			Str("recipient", recipient).
			Str("type", typ).
			Str("source_id", sourceID).
			Msg("duplicate notification suppressed")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByRecipient(ctx context.Context, recipient string, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByRecipient(ctx, recipient, unreadOnly, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, recipient string) (int, error) {
	return s.repo.CountUnread(ctx, recipient)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	return s.repo.MarkAllRead(ctx, recipient)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
