package sla_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence/file"
	"github.com/bankops/caseflow/pkg/registry"
	"github.com/bankops/caseflow/pkg/sla"
	"github.com/bankops/caseflow/pkg/workflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *file.DataStore
	engine  *engine.Engine
	monitor *sla.Monitor
}

func setupMonitor(t *testing.T) *fixture {
	t.Helper()

	store := file.NewDataStore(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, workflows.RegisterBuiltin(reg))

	dispatcher := notification.NewDispatcher(store, notification.DefaultSenders(slog.Default()), nil, slog.Default())
	engine.RegisterDefaultHandlers(reg, store, dispatcher, slog.Default())

	eng := engine.New(reg, store, nil, slog.Default())
	monitor := sla.NewMonitor(eng, store, reg, dispatcher, nil, slog.Default())

	return &fixture{store: store, engine: eng, monitor: monitor}
}

func seedCase(t *testing.T, store *file.DataStore, id, status string) {
	t.Helper()

	require.NoError(t, store.Cases().Save(context.Background(), &models.Case{
		ID:         id,
		CaseNumber: "LN-" + id,
		Status:     status,
		CustomerID: "cust-1",
		LoanAmount: 50000,
	}))
}

func overdueInstance(id string, startedAgo time.Duration) *models.WorkflowInstance {
	started := time.Now().UTC().Add(-startedAgo)

	return &models.WorkflowInstance{
		ID:           id,
		WorkflowName: workflows.WorkflowLoanApplication,
		CaseID:       "case-1",
		CurrentStep:  "initial_review", // 24h SLA
		Status:       models.InstanceStatusActive,
		History: []models.StepExecution{
			{ID: "exe-1", StepID: "application_received", Status: models.ExecutionStatusCompleted, ExecutedAt: started},
		},
		StartedAt: started,
	}
}

func TestMonitor_CheckViolations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-1", models.CaseStatusOpen)
	require.NoError(t, f.store.Instances().Save(ctx, overdueInstance("wfi-overdue", 30*time.Hour)))

	violations, err := f.monitor.CheckViolations(ctx)
	require.NoError(t, err)
	require.Len(t, violations, 1)

	v := violations[0]
	assert.Equal(t, "wfi-overdue", v.InstanceID)
	assert.Equal(t, "initial_review", v.StepID)
	assert.InDelta(t, 24.0, v.SLAHours, 0.001)
	assert.Greater(t, v.ElapsedHours, 24.0)

	inbox, err := f.store.Notifications().ListByRecipient(ctx, "manager")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "sla_violation", inbox[0].Type)
	assert.Equal(t, models.PriorityUrgent, inbox[0].Priority)
	assert.Contains(t, inbox[0].Message, "Initial Review")
	assert.Contains(t, inbox[0].Message, "LN-case-1")
}

func TestMonitor_RenotifiesEveryPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-1", models.CaseStatusOpen)
	require.NoError(t, f.store.Instances().Save(ctx, overdueInstance("wfi-overdue", 30*time.Hour)))

	for i := 0; i < 3; i++ {
		_, err := f.monitor.CheckViolations(ctx)
		require.NoError(t, err)
	}

	// There is no deduplication: each pass notifies again while the step stays
	// overdue.
	inbox, err := f.store.Notifications().ListByRecipient(ctx, "manager")
	require.NoError(t, err)
	assert.Len(t, inbox, 3)
}

func TestMonitor_NoViolationWithinSLA(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-1", models.CaseStatusOpen)
	require.NoError(t, f.store.Instances().Save(ctx, overdueInstance("wfi-fresh", time.Hour)))

	violations, err := f.monitor.CheckViolations(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestMonitor_FallsBackToStartedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-1", models.CaseStatusOpen)

	// No history at all: the workflow start time is the SLA clock reference.
	instance := overdueInstance("wfi-no-history", 30*time.Hour)
	instance.History = nil
	require.NoError(t, f.store.Instances().Save(ctx, instance))

	violations, err := f.monitor.CheckViolations(ctx)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Greater(t, violations[0].ElapsedHours, 29.0)
}

func TestMonitor_IgnoresStepsWithoutSLA(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-1", models.CaseStatusOpen)

	instance := overdueInstance("wfi-no-sla", 300*time.Hour)
	instance.CurrentStep = "application_received" // automatic, no SLA
	require.NoError(t, f.store.Instances().Save(ctx, instance))

	violations, err := f.monitor.CheckViolations(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestMonitor_ProcessActiveWorkflowsNudgesAutomaticStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-1", models.CaseStatusOpen)

	// An instance stranded on its automatic first step, as if the process died
	// between Start persisting the instance and executing the step.
	stranded := &models.WorkflowInstance{
		ID:           "wfi-stranded",
		WorkflowName: workflows.WorkflowLoanApplication,
		CaseID:       "case-1",
		CurrentStep:  "application_received",
		Status:       models.InstanceStatusActive,
		StartedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.store.Instances().Save(ctx, stranded))

	require.NoError(t, f.monitor.ProcessActiveWorkflows(ctx))

	tracked, err := f.engine.Instance("wfi-stranded")
	require.NoError(t, err)
	assert.Equal(t, "initial_review", tracked.CurrentStep)
	require.NotEmpty(t, tracked.History)
	assert.Equal(t, models.ExecutionStatusCompleted, tracked.History[0].Status)
}

func TestMonitor_AutoStartWorkflows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-open", models.CaseStatusOpen)
	seedCase(t, f.store, "case-closed", "closed")

	require.NoError(t, f.monitor.AutoStartWorkflows(ctx))

	active, err := f.store.Instances().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "case-open", active[0].CaseID)
	assert.Equal(t, workflows.WorkflowLoanApplication, active[0].WorkflowName)
	assert.Equal(t, "LN-case-open", active[0].Data["caseNumber"])

	// A second pass finds the case attached and starts nothing new.
	require.NoError(t, f.monitor.AutoStartWorkflows(ctx))

	instances, err := f.store.Instances().ListByStatus(ctx, models.InstanceStatusActive)
	require.NoError(t, err)
	assert.Len(t, instances, 1)
}

type recordingLocker struct {
	granted  bool
	acquired []string
}

func (l *recordingLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.acquired = append(l.acquired, key)

	return l.granted, nil
}

func (l *recordingLocker) Release(_ context.Context, _ string) error {
	return nil
}

func TestMonitor_AutoStartHonorsLease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := setupMonitor(t)

	seedCase(t, f.store, "case-open", models.CaseStatusOpen)

	locker := &recordingLocker{granted: false}
	f.monitor.WithLocker(locker)

	require.NoError(t, f.monitor.AutoStartWorkflows(ctx))

	assert.Equal(t, []string{"autostart:case-open"}, locker.acquired)

	active, err := f.store.Instances().ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
