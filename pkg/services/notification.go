package services

import (
	"context"
	"fmt"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
)

// Notification exposes inbox queries to the API layer.
type Notification struct {
	store persistence.DataStore
}

func NewNotification(store persistence.DataStore) *Notification {
	return &Notification{store: store}
}

func (s *Notification) ListByRecipient(ctx context.Context, recipient string) ([]*models.Notification, error) {
	if recipient == "" {
		return nil, NewValidationError("ListByRecipient", "RECIPIENT_REQUIRED", "recipient is required", ErrRecipientRequired)
	}

	notifications, err := s.store.Notifications().ListByRecipient(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

func (s *Notification) Stats(ctx context.Context, recipient string) (*models.NotificationStats, error) {
	if recipient == "" {
		return nil, NewValidationError("Stats", "RECIPIENT_REQUIRED", "recipient is required", ErrRecipientRequired)
	}

	stats, err := s.store.Notifications().Stats(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notifications: %w", err)
	}

	return stats, nil
}

func (s *Notification) MarkRead(ctx context.Context, id string) error {
	err := s.store.Notifications().MarkRead(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}

	return nil
}
