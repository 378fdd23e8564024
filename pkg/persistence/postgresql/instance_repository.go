package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
)

const instanceColumns = `
	id
  , workflow_name
  , case_id
  , current_step
  , status
  , data
  , history
  , started_at
  , completed_at
`

// InstanceRepository mirrors engine-owned workflow instances. The data bag and
// the execution history are stored as JSONB documents; the engine is the only
// writer, so last write wins.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *InstanceRepository) Save(ctx context.Context, instance *models.WorkflowInstance) error {
	data, err := json.Marshal(instance.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal instance data: %w", err)
	}

	history, err := json.Marshal(instance.History)
	if err != nil {
		return fmt.Errorf("failed to marshal instance history: %w", err)
	}

	query := `
		INSERT INTO workflow_instances (id, workflow_name, case_id, current_step, status, data, history, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			history = EXCLUDED.history,
			completed_at = EXCLUDED.completed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		instance.ID, instance.WorkflowName, instance.CaseID, instance.CurrentStep,
		instance.Status, data, history, instance.StartedAt, instance.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save instance %s: %w", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = $1`

	instance, err := scanInstance(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrInstanceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	return instance, nil
}

func (r *InstanceRepository) ListActive(ctx context.Context) ([]*models.WorkflowInstance, error) {
	return r.ListByStatus(ctx, models.InstanceStatusActive)
}

func (r *InstanceRepository) ListByStatus(ctx context.Context, status models.InstanceStatus) ([]*models.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE status = $1 ORDER BY started_at`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

func scanInstance(row rowScanner) (*models.WorkflowInstance, error) {
	var (
		instance models.WorkflowInstance
		data     []byte
		history  []byte
	)

	err := row.Scan(&instance.ID, &instance.WorkflowName, &instance.CaseID,
		&instance.CurrentStep, &instance.Status, &data, &history,
		&instance.StartedAt, &instance.CompletedAt)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		err = json.Unmarshal(data, &instance.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance data: %w", err)
		}
	}

	if len(history) > 0 {
		err = json.Unmarshal(history, &instance.History)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance history: %w", err)
		}
	}

	return &instance, nil
}
