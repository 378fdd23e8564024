package file

import (
	"context"
	"os"
	"time"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

// TaskRepository, UserRepository and CustomerRepository cover the directory
// tables the engine only touches lightly.

type TaskRepository struct {
	store *DataStore
}

func (r *TaskRepository) Create(_ context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = "tsk-" + uuid.New().String()[:8]
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	if task.Status == "" {
		task.Status = "open"
	}

	return r.store.write("tasks", task.ID, task)
}

type UserRepository struct {
	store *DataStore
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	var u models.User

	err := r.store.read("users", id, &u)
	if os.IsNotExist(err) {
		return nil, persistence.ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	return &u, nil
}

// SaveUser seeds a user row; tests and local bootstrap use it.
func (ds *DataStore) SaveUser(u *models.User) error {
	return ds.write("users", u.ID, u)
}

type CustomerRepository struct {
	store *DataStore
}

func (r *CustomerRepository) GetByID(_ context.Context, id string) (*models.Customer, error) {
	var c models.Customer

	err := r.store.read("customers", id, &c)
	if os.IsNotExist(err) {
		return nil, persistence.ErrCustomerNotFound
	}

	if err != nil {
		return nil, err
	}

	return &c, nil
}

// SaveCustomer seeds a customer row; tests and local bootstrap use it.
func (ds *DataStore) SaveCustomer(c *models.Customer) error {
	return ds.write("customers", c.ID, c)
}
