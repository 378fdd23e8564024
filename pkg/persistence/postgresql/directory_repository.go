package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

// TaskRepository creates task rows scoped to a case.
type TaskRepository struct {
	db *sql.DB
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = "tsk-" + uuid.New().String()[:8]
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	if task.Status == "" {
		task.Status = "open"
	}

	query := `
		INSERT INTO tasks (id, case_id, title, assigned_role, status, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.CaseID, task.Title, task.AssignedRole, task.Status, task.Priority, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// UserRepository resolves recipient contact info.
type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, phone, role FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Phone, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &u, nil
}

// SaveUser seeds a user row; tests and local bootstrap use it.
func (ds *DataStore) SaveUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, phone, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = $2, phone = $3, role = $4
	`

	_, err := ds.db.ExecContext(ctx, query, u.ID, u.Email, u.Phone, u.Role)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

// CustomerRepository resolves customer names for message substitution.
type CustomerRepository struct {
	db *sql.DB
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer

	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.FullName, &c.Email, &c.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrCustomerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	return &c, nil
}

// SaveCustomer seeds a customer row; tests and local bootstrap use it.
func (ds *DataStore) SaveCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (id, full_name, email, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET full_name = $2, email = $3, phone = $4
	`

	_, err := ds.db.ExecContext(ctx, query, c.ID, c.FullName, c.Email, c.Phone)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}

	return nil
}
