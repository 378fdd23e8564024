package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

// NotificationRepository handles notification-related database operations.
type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = "ntf-" + uuid.New().String()[:8]
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}

	query := `
		INSERT INTO notifications (id, type, title, message, recipient, recipient_kind, case_id, priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Type, n.Title, n.Message, n.Recipient, n.RecipientKind,
		n.CaseID, n.Priority, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	var (
		result sql.Result
		err    error
	)

	if status == models.NotificationStatusSent {
		result, err = r.db.ExecContext(ctx,
			`UPDATE notifications SET status = $2, sent_at = NOW() WHERE id = $1`, id, status)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE notifications SET status = $2 WHERE id = $1`, id, status)
	}

	if err != nil {
		return fmt.Errorf("failed to update notification %s status: %w", id, err)
	}

	return checkAffected(result, persistence.ErrNotificationNotFound)
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND read_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}

	return checkAffected(result, persistence.ErrNotificationNotFound)
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipient string) ([]*models.Notification, error) {
	query := `
		SELECT
			id
		  , type
		  , title
		  , message
		  , recipient
		  , recipient_kind
		  , case_id
		  , priority
		  , status
		  , created_at
		  , sent_at
		  , delivered_at
		  , read_at
		FROM notifications
		WHERE recipient = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var n models.Notification

		err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.Recipient,
			&n.RecipientKind, &n.CaseID, &n.Priority, &n.Status,
			&n.CreatedAt, &n.SentAt, &n.DeliveredAt, &n.ReadAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		notifications = append(notifications, &n)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepository) Stats(ctx context.Context, recipient string) (*models.NotificationStats, error) {
	stats := &models.NotificationStats{
		ByType:     make(map[string]int),
		ByPriority: make(map[string]int),
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE read_at IS NULL)
		FROM notifications WHERE recipient = $1
	`, recipient).Scan(&stats.Total, &stats.Unread)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	err = r.aggregate(ctx, `SELECT type, COUNT(*) FROM notifications WHERE recipient = $1 GROUP BY type`, recipient, stats.ByType)
	if err != nil {
		return nil, err
	}

	err = r.aggregate(ctx, `SELECT priority, COUNT(*) FROM notifications WHERE recipient = $1 GROUP BY priority`, recipient, stats.ByPriority)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *NotificationRepository) aggregate(ctx context.Context, query, recipient string, into map[string]int) error {
	rows, err := r.db.QueryContext(ctx, query, recipient)
	if err != nil {
		return fmt.Errorf("failed to aggregate notifications: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var (
			key   string
			count int
		)

		err := rows.Scan(&key, &count)
		if err != nil {
			return fmt.Errorf("failed to scan aggregate row: %w", err)
		}

		into[key] = count
	}

	return rows.Err()
}
