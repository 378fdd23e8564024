// Package engine advances workflow instances through their steps and runs step actions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bankops/caseflow/pkg/eventbus"
	"github.com/bankops/caseflow/pkg/events"
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/otelhelper"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownInstance indicates an operation against an instance id the engine does not track.
var ErrUnknownInstance = errors.New("unknown workflow instance")

// Engine owns the live workflow instances. Instances are mutated exclusively
// here; every mutation is mirrored to the data store afterwards. The mirror
// write is at-least-once and not transactional with the in-memory update, so a
// crash between the two can leave them briefly inconsistent.
type Engine struct {
	registry  *registry.Registry
	store     persistence.DataStore
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	tracer    trace.Tracer

	mu        sync.RWMutex
	instances map[string]*models.WorkflowInstance
}

// New wires an engine. publisher may be nil; lifecycle events are then skipped.
func New(reg *registry.Registry, store persistence.DataStore, publisher eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		registry:  reg,
		store:     store,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("caseflow/engine"),
		instances: make(map[string]*models.WorkflowInstance),
	}
}

// Start creates a new instance of the named workflow for a case and
// immediately executes its first step.
func (e *Engine) Start(ctx context.Context, workflowName, caseID string, initialData map[string]any) (*models.WorkflowInstance, error) {
	def, err := e.registry.Workflow(workflowName)
	if err != nil {
		return nil, err
	}

	first := def.FirstStep()

	instance := &models.WorkflowInstance{
		ID:           "wfi-" + uuid.New().String()[:8],
		WorkflowName: workflowName,
		CaseID:       caseID,
		CurrentStep:  first.ID,
		Status:       models.InstanceStatusActive,
		Data:         initialData,
		History:      make([]models.StepExecution, 0),
		StartedAt:    time.Now().UTC(),
	}

	if instance.Data == nil {
		instance.Data = make(map[string]any)
	}

	e.mu.Lock()
	e.instances[instance.ID] = instance
	e.mu.Unlock()

	err = e.persist(ctx, instance)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Started workflow",
		"workflow", workflowName, "instance_id", instance.ID, "case_id", caseID)

	e.publish(ctx, events.WorkflowStarted{
		BaseEvent:   events.NewBaseEvent(events.WorkflowStartedEvent, workflowName, instance.ID, caseID),
		InitialData: initialData,
	})

	err = e.ExecuteStep(ctx, instance.ID, first.ID)
	if err != nil {
		return nil, err
	}

	return instance, nil
}

// ExecuteStep runs one step of an instance, then keeps going while the step it
// advanced to is automatic. Action failures do not surface as an error: the
// instance transitions to failed and the caller inspects its status.
func (e *Engine) ExecuteStep(ctx context.Context, instanceID, stepID string) error {
	return e.ExecuteStepBy(ctx, instanceID, stepID, "")
}

// ExecuteStepBy is ExecuteStep with an executor identity recorded in the audit
// trail (manual step completions pass the operator's user id).
func (e *Engine) ExecuteStepBy(ctx context.Context, instanceID, stepID, executedBy string) error {
	instance, err := e.Instance(instanceID)
	if err != nil {
		return err
	}

	def, err := e.registry.Workflow(instance.WorkflowName)
	if err != nil {
		return err
	}

	// Explicit loop instead of recursing into the next automatic step; long
	// automatic chains must not grow the call stack.
	for stepID != "" {
		step := def.Step(stepID)
		if step == nil {
			return fmt.Errorf("step %s not found in workflow %s", stepID, instance.WorkflowName)
		}

		advanced, err := e.runStep(ctx, instance, step, executedBy)
		if err != nil {
			return err
		}

		if advanced == "" || def.Step(advanced) == nil || def.Step(advanced).Type != models.StepTypeAutomatic {
			return nil
		}

		stepID = advanced
		executedBy = ""
	}

	return nil
}

// runStep executes one step's actions and advances the instance. It returns
// the id of the step the instance moved to, or "" when the instance reached a
// terminal state (completed or failed).
func (e *Engine) runStep(ctx context.Context, instance *models.WorkflowInstance, step *models.StepDefinition, executedBy string) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_step",
		attribute.String(otelhelper.WorkflowNameKey, instance.WorkflowName),
		attribute.String(otelhelper.InstanceIDKey, instance.ID),
		attribute.String(otelhelper.StepIDKey, step.ID),
	)
	defer span.End()

	logger := e.logger.With(
		"workflow", instance.WorkflowName,
		"instance_id", instance.ID,
		"step_id", step.ID,
	)

	logger.InfoContext(ctx, "Executing step", "step_type", step.Type, "actions", len(step.Actions))

	execution := models.StepExecution{
		ID:         "exe-" + uuid.New().String()[:8],
		StepID:     step.ID,
		Status:     models.ExecutionStatusInProgress,
		ExecutedAt: time.Now().UTC(),
		ExecutedBy: executedBy,
	}

	instance.History = append(instance.History, execution)
	idx := len(instance.History) - 1

	results := make([]string, 0, len(step.Actions))

	for _, action := range step.Actions {
		handler, ok := e.registry.Handler(action.Type)
		if !ok {
			logger.WarnContext(ctx, "Skipping unregistered action type", "action_type", action.Type)

			continue
		}

		result, err := handler(ctx, action, instance)
		if err != nil {
			// First failing action aborts the rest of the step. Side effects
			// already applied stay applied; there is no rollback and no retry.
			otelhelper.SetError(span, err)
			logger.ErrorContext(ctx, "Action failed, failing instance",
				"action_type", action.Type, "error", err)

			instance.History[idx].Status = models.ExecutionStatusFailed
			instance.History[idx].Error = err.Error()
			instance.Status = models.InstanceStatusFailed

			e.publish(ctx, events.StepFailed{
				BaseEvent: events.NewBaseEvent(events.StepFailedEvent, instance.WorkflowName, instance.ID, instance.CaseID),
				StepID:    step.ID,
				Error:     err.Error(),
			})
			e.publish(ctx, events.WorkflowFailed{
				BaseEvent: events.NewBaseEvent(events.WorkflowFailedEvent, instance.WorkflowName, instance.ID, instance.CaseID),
				StepID:    step.ID,
				Error:     err.Error(),
			})

			return "", e.persist(ctx, instance)
		}

		if result != "" {
			results = append(results, result)
		}
	}

	instance.History[idx].Status = models.ExecutionStatusCompleted
	instance.History[idx].Result = strings.Join(results, "; ")

	next := nextStepID(step, instance.Data)

	if next == "" {
		now := time.Now().UTC()
		instance.Status = models.InstanceStatusCompleted
		instance.CompletedAt = &now

		logger.InfoContext(ctx, "Workflow completed")

		e.publish(ctx, events.StepCompleted{
			BaseEvent: events.NewBaseEvent(events.StepCompletedEvent, instance.WorkflowName, instance.ID, instance.CaseID),
			StepID:    step.ID,
		})
		e.publish(ctx, events.WorkflowCompleted{
			BaseEvent: events.NewBaseEvent(events.WorkflowCompletedEvent, instance.WorkflowName, instance.ID, instance.CaseID),
			Duration:  now.Sub(instance.StartedAt),
		})

		return "", e.persist(ctx, instance)
	}

	instance.CurrentStep = next

	logger.InfoContext(ctx, "Step completed", "next_step", next)

	e.publish(ctx, events.StepCompleted{
		BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, instance.WorkflowName, instance.ID, instance.CaseID),
		StepID:     step.ID,
		NextStepID: next,
	})

	return next, e.persist(ctx, instance)
}

// nextStepID resolves where a completed step advances to. Conditional steps
// take the first matching condition's target; no match means no next step.
// Every other step type takes the earliest declared next step.
func nextStepID(step *models.StepDefinition, data map[string]any) string {
	if step.Type == models.StepTypeConditional {
		for _, condition := range step.Conditions {
			if condition.Matches(data) {
				return condition.NextStep
			}
		}

		return ""
	}

	if len(step.NextSteps) > 0 {
		return step.NextSteps[0]
	}

	return ""
}

// Instance returns the tracked live instance.
func (e *Engine) Instance(id string) (*models.WorkflowInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, ok := e.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstance, id)
	}

	return instance, nil
}

// Instances returns all tracked live instances.
func (e *Engine) Instances() []*models.WorkflowInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instances := make([]*models.WorkflowInstance, 0, len(e.instances))
	for _, instance := range e.instances {
		instances = append(instances, instance)
	}

	return instances
}

// Resume re-hydrates active instances from the data store after a restart.
func (e *Engine) Resume(ctx context.Context) error {
	active, err := e.store.Instances().ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active instances: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, instance := range active {
		if _, tracked := e.instances[instance.ID]; !tracked {
			e.instances[instance.ID] = instance
		}
	}

	e.logger.InfoContext(ctx, "Resumed active workflow instances", "count", len(active))

	return nil
}

// Track adopts an instance loaded elsewhere (the SLA monitor uses this for
// instances found in the data store but not yet in memory).
func (e *Engine) Track(instance *models.WorkflowInstance) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, tracked := e.instances[instance.ID]; !tracked {
		e.instances[instance.ID] = instance
	}
}

func (e *Engine) persist(ctx context.Context, instance *models.WorkflowInstance) error {
	err := e.store.Instances().Save(ctx, instance)
	if err != nil {
		return fmt.Errorf("failed to persist instance %s: %w", instance.ID, err)
	}

	return nil
}

func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, string(event.GetType()), event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish workflow event",
			"event_type", event.GetType(), "error", err)
	}
}
