package services

import (
	"context"
	"fmt"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
)

// Workflow exposes instance operations to the API layer.
type Workflow struct {
	engine   *engine.Engine
	registry *registry.Registry
	store    persistence.DataStore
}

func NewWorkflow(eng *engine.Engine, reg *registry.Registry, store persistence.DataStore) *Workflow {
	return &Workflow{engine: eng, registry: reg, store: store}
}

// Start launches a workflow for a case.
func (s *Workflow) Start(ctx context.Context, workflowName, caseID string, data map[string]any) (*models.WorkflowInstance, error) {
	if caseID == "" {
		return nil, NewValidationError("Start", "CASE_ID_REQUIRED", "case id is required", ErrCaseIDRequired)
	}

	instance, err := s.engine.Start(ctx, workflowName, caseID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow %s: %w", workflowName, err)
	}

	return instance, nil
}

// Instance resolves an instance, preferring the live engine copy and falling
// back to the persisted mirror.
func (s *Workflow) Instance(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	instance, err := s.engine.Instance(id)
	if err == nil {
		return instance, nil
	}

	instance, storeErr := s.store.Instances().GetByID(ctx, id)
	if storeErr != nil {
		return nil, fmt.Errorf("failed to load instance %s: %w", id, storeErr)
	}

	return instance, nil
}

// List returns persisted instances, optionally filtered by status.
func (s *Workflow) List(ctx context.Context, status string) ([]*models.WorkflowInstance, error) {
	if status == "" {
		statuses := []models.InstanceStatus{
			models.InstanceStatusActive,
			models.InstanceStatusCompleted,
			models.InstanceStatusPaused,
			models.InstanceStatusFailed,
		}

		all := make([]*models.WorkflowInstance, 0)

		for _, s2 := range statuses {
			instances, err := s.store.Instances().ListByStatus(ctx, s2)
			if err != nil {
				return nil, fmt.Errorf("failed to list instances: %w", err)
			}

			all = append(all, instances...)
		}

		return all, nil
	}

	switch models.InstanceStatus(status) {
	case models.InstanceStatusActive, models.InstanceStatusCompleted,
		models.InstanceStatusPaused, models.InstanceStatusFailed:
	default:
		return nil, NewValidationError(
			"List",
			"INVALID_STATUS",
			fmt.Sprintf("invalid status '%s', allowed: active, completed, paused, failed", status),
			ErrInvalidStatus,
		)
	}

	instances, err := s.store.Instances().ListByStatus(ctx, models.InstanceStatus(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	return instances, nil
}

// CompleteStep executes a manual step on behalf of an operator. The step must
// be the instance's current step and must not be automatic; the engine picks
// up automatic steps on its own.
func (s *Workflow) CompleteStep(ctx context.Context, instanceID, stepID, executedBy string) (*models.WorkflowInstance, error) {
	instance, err := s.engine.Instance(instanceID)
	if err != nil {
		return nil, err
	}

	if instance.Status != models.InstanceStatusActive {
		return nil, NewConflictError(
			"CompleteStep",
			"INSTANCE_NOT_ACTIVE",
			fmt.Sprintf("instance %s is %s", instanceID, instance.Status),
			ErrInstanceNotActive,
		)
	}

	if instance.CurrentStep != stepID {
		return nil, NewConflictError(
			"CompleteStep",
			"STEP_NOT_CURRENT",
			fmt.Sprintf("current step is %s, not %s", instance.CurrentStep, stepID),
			ErrStepNotCurrent,
		)
	}

	def, err := s.registry.Workflow(instance.WorkflowName)
	if err != nil {
		return nil, err
	}

	step := def.Step(stepID)
	if step != nil && step.Type == models.StepTypeAutomatic {
		return nil, NewConflictError(
			"CompleteStep",
			"STEP_NOT_EXECUTABLE",
			fmt.Sprintf("step %s is automatic, the engine executes it", stepID),
			ErrStepNotExecutable,
		)
	}

	err = s.engine.ExecuteStepBy(ctx, instanceID, stepID, executedBy)
	if err != nil {
		return nil, err
	}

	return s.engine.Instance(instanceID)
}
