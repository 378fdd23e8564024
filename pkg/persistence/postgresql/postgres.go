// Package postgresql provides the PostgreSQL data store implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// DataStore implements persistence.DataStore for PostgreSQL.
type DataStore struct {
	db     *sql.DB
	logger *slog.Logger

	cases         *CaseRepository
	tasks         *TaskRepository
	instances     *InstanceRepository
	notifications *NotificationRepository
	users         *UserRepository
	customers     *CustomerRepository
}

// NewDataStore connects, runs migrations and wires the repositories.
func NewDataStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*DataStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ds := &DataStore{db: database, logger: logger}
	ds.cases = &CaseRepository{db: database, logger: logger}
	ds.tasks = &TaskRepository{db: database}
	ds.instances = &InstanceRepository{db: database, logger: logger}
	ds.notifications = &NotificationRepository{db: database, logger: logger}
	ds.users = &UserRepository{db: database}
	ds.customers = &CustomerRepository{db: database}

	return ds, nil
}

func (ds *DataStore) Cases() persistence.CaseRepository                 { return ds.cases }
func (ds *DataStore) Tasks() persistence.TaskRepository                 { return ds.tasks }
func (ds *DataStore) Instances() persistence.InstanceRepository         { return ds.instances }
func (ds *DataStore) Notifications() persistence.NotificationRepository { return ds.notifications }
func (ds *DataStore) Users() persistence.UserRepository                 { return ds.users }
func (ds *DataStore) Customers() persistence.CustomerRepository         { return ds.customers }

// HealthCheck verifies the database connection is healthy.
func (ds *DataStore) HealthCheck(ctx context.Context) error {
	err := ds.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (ds *DataStore) Close(_ context.Context) error {
	if ds.db != nil {
		err := ds.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS cases (
				id TEXT PRIMARY KEY,
				case_number TEXT NOT NULL,
				status TEXT NOT NULL,
				assigned_to TEXT NOT NULL DEFAULT '',
				assigned_role TEXT NOT NULL DEFAULT '',
				customer_id TEXT NOT NULL DEFAULT '',
				loan_amount NUMERIC NOT NULL DEFAULT 0,
				data JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS customers (
				id TEXT PRIMARY KEY,
				full_name TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL DEFAULT '',
				phone TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				case_id TEXT NOT NULL,
				title TEXT NOT NULL,
				assigned_role TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'open',
				priority TEXT NOT NULL DEFAULT 'medium',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS workflow_instances (
				id TEXT PRIMARY KEY,
				workflow_name TEXT NOT NULL,
				case_id TEXT NOT NULL,
				current_step TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				data JSONB,
				history JSONB,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				type TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				recipient TEXT NOT NULL,
				recipient_kind TEXT NOT NULL,
				case_id TEXT NOT NULL DEFAULT '',
				priority TEXT NOT NULL DEFAULT 'medium',
				status TEXT NOT NULL DEFAULT 'pending',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				sent_at TIMESTAMP WITH TIME ZONE,
				delivered_at TIMESTAMP WITH TIME ZONE,
				read_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_cases_status ON cases (status);
			CREATE INDEX IF NOT EXISTS idx_instances_status ON workflow_instances (status);
			CREATE INDEX IF NOT EXISTS idx_instances_case ON workflow_instances (case_id);
			CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient);
		`,
	}
}
