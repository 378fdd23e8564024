package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

const notificationsKind = "notifications"

// NotificationRepository handles notification rows stored as JSON files.
type NotificationRepository struct {
	store *DataStore
}

func (r *NotificationRepository) Create(_ context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = "ntf-" + uuid.New().String()[:8]
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}

	return r.store.write(notificationsKind, n.ID, n)
}

func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	n, err := r.getByID(id)
	if err != nil {
		return err
	}

	n.Status = status

	if status == models.NotificationStatusSent {
		now := time.Now().UTC()
		n.SentAt = &now
	}

	return r.store.write(notificationsKind, n.ID, n)
}

func (r *NotificationRepository) MarkRead(_ context.Context, id string) error {
	n, err := r.getByID(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	n.ReadAt = &now

	return r.store.write(notificationsKind, n.ID, n)
}

func (r *NotificationRepository) ListByRecipient(_ context.Context, recipient string) ([]*models.Notification, error) {
	notifications := make([]*models.Notification, 0)

	err := r.store.readAll(notificationsKind, func(data []byte) error {
		var n models.Notification

		err := json.Unmarshal(data, &n)
		if err != nil {
			return fmt.Errorf("failed to unmarshal notification: %w", err)
		}

		if n.Recipient == recipient {
			notifications = append(notifications, &n)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})

	return notifications, nil
}

func (r *NotificationRepository) Stats(ctx context.Context, recipient string) (*models.NotificationStats, error) {
	notifications, err := r.ListByRecipient(ctx, recipient)
	if err != nil {
		return nil, err
	}

	stats := &models.NotificationStats{
		ByType:     make(map[string]int),
		ByPriority: make(map[string]int),
	}

	for _, n := range notifications {
		stats.Total++

		if n.ReadAt == nil {
			stats.Unread++
		}

		stats.ByType[n.Type]++
		stats.ByPriority[string(n.Priority)]++
	}

	return stats, nil
}

func (r *NotificationRepository) getByID(id string) (*models.Notification, error) {
	var n models.Notification

	err := r.store.read(notificationsKind, id, &n)
	if os.IsNotExist(err) {
		return nil, persistence.ErrNotificationNotFound
	}

	if err != nil {
		return nil, err
	}

	return &n, nil
}
