package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
)

const casesKind = "cases"

// CaseRepository handles case rows stored as JSON files.
type CaseRepository struct {
	store *DataStore
}

func (r *CaseRepository) GetByID(_ context.Context, id string) (*models.Case, error) {
	var c models.Case

	err := r.store.read(casesKind, id, &c)
	if os.IsNotExist(err) {
		return nil, persistence.ErrCaseNotFound
	}

	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *CaseRepository) Save(_ context.Context, c *models.Case) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	c.UpdatedAt = time.Now().UTC()

	return r.store.write(casesKind, c.ID, c)
}

func (r *CaseRepository) UpdateStatus(ctx context.Context, id, status string) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	c.Status = status

	return r.Save(ctx, c)
}

func (r *CaseRepository) Assign(ctx context.Context, id, userID, role string) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	c.AssignedTo = userID
	c.AssignedRole = role

	return r.Save(ctx, c)
}

func (r *CaseRepository) ListByStatus(_ context.Context, status string) ([]*models.Case, error) {
	cases := make([]*models.Case, 0)

	err := r.store.readAll(casesKind, func(data []byte) error {
		var c models.Case

		err := json.Unmarshal(data, &c)
		if err != nil {
			return fmt.Errorf("failed to unmarshal case: %w", err)
		}

		if c.Status == status {
			cases = append(cases, &c)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cases, nil
}

func (r *CaseRepository) ListWithoutInstance(ctx context.Context) ([]*models.Case, error) {
	referenced := make(map[string]bool)

	err := r.store.readAll(instancesKind, func(data []byte) error {
		var instance models.WorkflowInstance

		err := json.Unmarshal(data, &instance)
		if err != nil {
			return fmt.Errorf("failed to unmarshal instance: %w", err)
		}

		referenced[instance.CaseID] = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	cases := make([]*models.Case, 0)

	err = r.store.readAll(casesKind, func(data []byte) error {
		var c models.Case

		err := json.Unmarshal(data, &c)
		if err != nil {
			return fmt.Errorf("failed to unmarshal case: %w", err)
		}

		if !referenced[c.ID] {
			cases = append(cases, &c)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cases, nil
}
