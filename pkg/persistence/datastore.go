// Package persistence provides the data store abstraction the engine mirrors its state to.
package persistence

import (
	"context"

	"github.com/bankops/caseflow/pkg/models"
)

// DataStore bundles the repositories the engine and dispatcher depend on.
// Implementations exist for the local file system (tests, development) and
// PostgreSQL (production).
type DataStore interface {
	Cases() CaseRepository
	Tasks() TaskRepository
	Instances() InstanceRepository
	Notifications() NotificationRepository
	Users() UserRepository
	Customers() CustomerRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type CaseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	Save(ctx context.Context, c *models.Case) error
	UpdateStatus(ctx context.Context, id, status string) error
	Assign(ctx context.Context, id, userID, role string) error
	ListByStatus(ctx context.Context, status string) ([]*models.Case, error)
	// ListWithoutInstance returns cases no workflow instance references yet.
	ListWithoutInstance(ctx context.Context) ([]*models.Case, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
}

// InstanceRepository mirrors the engine's in-memory instances. Save is an
// upsert keyed by instance id; the engine is the only writer.
type InstanceRepository interface {
	Save(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	ListActive(ctx context.Context) ([]*models.WorkflowInstance, error)
	ListByStatus(ctx context.Context, status models.InstanceStatus) ([]*models.WorkflowInstance, error)
}

type NotificationRepository interface {
	// Create persists the notification and fills in its generated id.
	Create(ctx context.Context, n *models.Notification) error
	UpdateStatus(ctx context.Context, id string, status models.NotificationStatus) error
	MarkRead(ctx context.Context, id string) error
	ListByRecipient(ctx context.Context, recipient string) ([]*models.Notification, error)
	Stats(ctx context.Context, recipient string) (*models.NotificationStats, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*models.Customer, error)
}
