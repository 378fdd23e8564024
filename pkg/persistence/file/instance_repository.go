package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
)

const instancesKind = "instances"

// InstanceRepository mirrors engine-owned workflow instances to disk.
type InstanceRepository struct {
	store *DataStore
}

func (r *InstanceRepository) Save(_ context.Context, instance *models.WorkflowInstance) error {
	return r.store.write(instancesKind, instance.ID, instance)
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	err := r.store.read(instancesKind, id, &instance)
	if os.IsNotExist(err) {
		return nil, persistence.ErrInstanceNotFound
	}

	if err != nil {
		return nil, err
	}

	return &instance, nil
}

func (r *InstanceRepository) ListActive(ctx context.Context) ([]*models.WorkflowInstance, error) {
	return r.ListByStatus(ctx, models.InstanceStatusActive)
}

func (r *InstanceRepository) ListByStatus(_ context.Context, status models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	instances := make([]*models.WorkflowInstance, 0)

	err := r.store.readAll(instancesKind, func(data []byte) error {
		var instance models.WorkflowInstance

		err := json.Unmarshal(data, &instance)
		if err != nil {
			return fmt.Errorf("failed to unmarshal instance: %w", err)
		}

		if instance.Status == status {
			instances = append(instances, &instance)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].StartedAt.Before(instances[j].StartedAt)
	})

	return instances, nil
}
