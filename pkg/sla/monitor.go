// Package sla scans active workflow instances for overdue steps and drives periodic engine work.
package sla

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/eventbus"
	"github.com/bankops/caseflow/pkg/events"
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
)

const defaultAutoStartWorkflow = "loan_application"

// managerRole receives SLA violation notifications.
const managerRole = "manager"

// Locker serializes auto-starts across replicas. Optional; without one,
// concurrent monitors can double-start workflows for the same case.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Violation describes one overdue step found by a check pass.
type Violation struct {
	InstanceID   string  `json:"instance_id"`
	CaseID       string  `json:"case_id"`
	StepID       string  `json:"step_id"`
	StepName     string  `json:"step_name"`
	SLAHours     float64 `json:"sla_hours"`
	ElapsedHours float64 `json:"elapsed_hours"`
}

// Monitor owns no timer: an external scheduler invokes its methods on a fixed
// cadence. Violation checks recompute from scratch each pass and re-notify
// while a step stays overdue; there is deliberately no deduplication.
type Monitor struct {
	engine     *engine.Engine
	store      persistence.DataStore
	registry   *registry.Registry
	dispatcher *notification.Dispatcher
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	locker     Locker

	autoStartWorkflow string
}

func NewMonitor(eng *engine.Engine, store persistence.DataStore, reg *registry.Registry, dispatcher *notification.Dispatcher, publisher eventbus.EventPublisher, logger *slog.Logger) *Monitor {
	return &Monitor{
		engine:            eng,
		store:             store,
		registry:          reg,
		dispatcher:        dispatcher,
		publisher:         publisher,
		logger:            logger,
		autoStartWorkflow: defaultAutoStartWorkflow,
	}
}

// WithLocker enables the per-case auto-start lease for multi-replica runs.
func (m *Monitor) WithLocker(locker Locker) *Monitor {
	m.locker = locker

	return m
}

// CheckViolations scans every active instance and notifies the manager role
// for each step that exceeded its SLA.
func (m *Monitor) CheckViolations(ctx context.Context) ([]Violation, error) {
	instances, err := m.store.Instances().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active instances: %w", err)
	}

	violations := make([]Violation, 0)

	for _, instance := range instances {
		violation := m.checkInstance(ctx, instance)
		if violation != nil {
			violations = append(violations, *violation)
		}
	}

	return violations, nil
}

// CheckInstance runs the SLA check for a single instance and returns the
// violation, if any.
func (m *Monitor) CheckInstance(ctx context.Context, instance *models.WorkflowInstance) *Violation {
	return m.checkInstance(ctx, instance)
}

func (m *Monitor) checkInstance(ctx context.Context, instance *models.WorkflowInstance) *Violation {
	if instance.Status != models.InstanceStatusActive {
		return nil
	}

	def, err := m.registry.Workflow(instance.WorkflowName)
	if err != nil {
		m.logger.WarnContext(ctx, "Active instance references unknown workflow",
			"instance_id", instance.ID, "workflow", instance.WorkflowName)

		return nil
	}

	step := def.Step(instance.CurrentStep)
	if step == nil || step.SLAHours <= 0 {
		return nil
	}

	// The step's own execution record is the clock reference; an instance that
	// never reached its current step falls back to the workflow start time.
	reference := instance.StartedAt
	if execution := instance.LastExecution(step.ID); execution != nil {
		reference = execution.ExecutedAt
	}

	elapsed := time.Since(reference).Hours()
	if elapsed <= step.SLAHours {
		return nil
	}

	violation := &Violation{
		InstanceID:   instance.ID,
		CaseID:       instance.CaseID,
		StepID:       step.ID,
		StepName:     step.Name,
		SLAHours:     step.SLAHours,
		ElapsedHours: elapsed,
	}

	m.logger.WarnContext(ctx, "SLA violation detected",
		"instance_id", instance.ID,
		"case_id", instance.CaseID,
		"step", step.ID,
		"sla_hours", step.SLAHours,
		"elapsed_hours", elapsed,
	)

	_, err = m.dispatcher.SendWithCaseData(ctx, "sla_violation", instance.CaseID, managerRole, models.RecipientRole, map[string]any{
		"stepName":     step.Name,
		"slaHours":     step.SLAHours,
		"elapsedHours": fmt.Sprintf("%.1f", elapsed),
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to dispatch SLA violation notification",
			"instance_id", instance.ID, "error", err)
	}

	if m.publisher != nil {
		event := events.SLAViolated{
			BaseEvent:    events.NewBaseEvent(events.SLAViolatedEvent, instance.WorkflowName, instance.ID, instance.CaseID),
			StepID:       step.ID,
			SLAHours:     step.SLAHours,
			ElapsedHours: elapsed,
		}

		err = m.publisher.Publish(ctx, instance.ID, event)
		if err != nil {
			m.logger.WarnContext(ctx, "Failed to publish SLA event", "error", err)
		}
	}

	return violation
}

// ProcessActiveWorkflows loads persisted active instances, nudges stalled
// automatic steps forward and SLA-checks each instance.
func (m *Monitor) ProcessActiveWorkflows(ctx context.Context) error {
	instances, err := m.store.Instances().ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active instances: %w", err)
	}

	for _, instance := range instances {
		m.engine.Track(instance)

		def, err := m.registry.Workflow(instance.WorkflowName)
		if err != nil {
			m.logger.WarnContext(ctx, "Skipping instance with unknown workflow",
				"instance_id", instance.ID, "workflow", instance.WorkflowName)

			continue
		}

		step := def.Step(instance.CurrentStep)
		if step != nil && step.Type == models.StepTypeAutomatic && !stepProgressed(instance, step.ID) {
			err = m.engine.ExecuteStep(ctx, instance.ID, step.ID)
			if err != nil {
				m.logger.ErrorContext(ctx, "Failed to execute automatic step",
					"instance_id", instance.ID, "step", step.ID, "error", err)
			}
		}

		tracked, err := m.engine.Instance(instance.ID)
		if err == nil {
			m.checkInstance(ctx, tracked)
		}
	}

	return nil
}

func stepProgressed(instance *models.WorkflowInstance, stepID string) bool {
	execution := instance.LastExecution(stepID)

	return execution != nil && execution.Status == models.ExecutionStatusCompleted
}

// AutoStartWorkflows starts the default workflow for open cases that have no
// instance yet.
func (m *Monitor) AutoStartWorkflows(ctx context.Context) error {
	cases, err := m.store.Cases().ListWithoutInstance(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cases without instances: %w", err)
	}

	for _, c := range cases {
		if c.Status != models.CaseStatusOpen {
			continue
		}

		if !m.acquireStartLease(ctx, c.ID) {
			continue
		}

		data := map[string]any{
			"caseNumber": c.CaseNumber,
			"customerId": c.CustomerID,
			"loanAmount": c.LoanAmount,
			"status":     c.Status,
		}

		_, err := m.engine.Start(ctx, m.autoStartWorkflow, c.ID, data)
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to auto-start workflow",
				"case_id", c.ID, "workflow", m.autoStartWorkflow, "error", err)

			continue
		}

		m.logger.InfoContext(ctx, "Auto-started workflow",
			"case_id", c.ID, "workflow", m.autoStartWorkflow)
	}

	return nil
}

func (m *Monitor) acquireStartLease(ctx context.Context, caseID string) bool {
	if m.locker == nil {
		return true
	}

	acquired, err := m.locker.Acquire(ctx, "autostart:"+caseID, time.Minute)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to acquire auto-start lease", "case_id", caseID, "error", err)

		return false
	}

	return acquired
}
