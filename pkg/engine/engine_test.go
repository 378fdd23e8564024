package engine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence/file"
	"github.com/bankops/caseflow/pkg/registry"
	"github.com/bankops/caseflow/pkg/workflows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngine(t *testing.T, defs ...*models.WorkflowDefinition) (*Engine, *file.DataStore) {
	t.Helper()

	store := file.NewDataStore(t.TempDir())
	reg := registry.NewRegistry(slog.Default())

	dispatcher := notification.NewDispatcher(store, notification.DefaultSenders(slog.Default()), nil, slog.Default())
	RegisterDefaultHandlers(reg, store, dispatcher, slog.Default())

	for _, def := range defs {
		require.NoError(t, reg.RegisterWorkflow(def))
	}

	return New(reg, store, nil, slog.Default()), store
}

func seedCase(t *testing.T, store *file.DataStore, id string) {
	t.Helper()

	require.NoError(t, store.Cases().Save(context.Background(), &models.Case{
		ID:         id,
		CaseNumber: "LN-" + id,
		Status:     models.CaseStatusOpen,
		CustomerID: "cust-1",
		LoanAmount: 50000,
	}))
}

func TestEngine_StartStopsAtManualStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "intake_then_review",
		Steps: []models.StepDefinition{
			{ID: "intake", Name: "Intake", Type: models.StepTypeAutomatic, NextSteps: []string{"review"}},
			{ID: "review", Name: "Review", Type: models.StepTypeManual},
		},
	}

	eng, store := setupEngine(t, def)
	seedCase(t, store, "case-1")

	instance, err := eng.Start(ctx, "intake_then_review", "case-1", map[string]any{"source": "branch"})
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusActive, instance.Status)
	assert.Equal(t, "review", instance.CurrentStep)
	assert.Equal(t, "branch", instance.Data["source"])
	assert.False(t, instance.StartedAt.IsZero())
	assert.Nil(t, instance.CompletedAt)

	require.Len(t, instance.History, 1)
	assert.Equal(t, "intake", instance.History[0].StepID)
	assert.Equal(t, models.ExecutionStatusCompleted, instance.History[0].Status)

	// The persisted mirror matches the live instance.
	mirrored, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, instance.CurrentStep, mirrored.CurrentStep)
	assert.Equal(t, instance.Status, mirrored.Status)
}

func TestEngine_StartUnknownWorkflow(t *testing.T) {
	t.Parallel()

	eng, _ := setupEngine(t)

	_, err := eng.Start(context.Background(), "missing_workflow", "case-1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrUnknownWorkflow)
}

func TestEngine_StartNilDataInitializesBag(t *testing.T) {
	t.Parallel()

	def := &models.WorkflowDefinition{
		Name: "single_manual",
		Steps: []models.StepDefinition{
			{ID: "review", Name: "Review", Type: models.StepTypeManual},
		},
	}

	eng, _ := setupEngine(t, def)

	instance, err := eng.Start(context.Background(), "single_manual", "case-1", nil)
	require.NoError(t, err)
	assert.NotNil(t, instance.Data)
}

func TestEngine_AutomaticChainRunsToCompletion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "auto_chain",
		Steps: []models.StepDefinition{
			{ID: "one", Name: "One", Type: models.StepTypeAutomatic, NextSteps: []string{"two"}},
			{ID: "two", Name: "Two", Type: models.StepTypeAutomatic, NextSteps: []string{"three"}},
			{ID: "three", Name: "Three", Type: models.StepTypeAutomatic},
		},
	}

	eng, store := setupEngine(t, def)

	instance, err := eng.Start(ctx, "auto_chain", "case-1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	require.NotNil(t, instance.CompletedAt)
	require.Len(t, instance.History, 3)

	for _, execution := range instance.History {
		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	}

	mirrored, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, mirrored.Status)
}

func TestEngine_ManualStepRecordsOperator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "manual_then_auto",
		Steps: []models.StepDefinition{
			{ID: "review", Name: "Review", Type: models.StepTypeManual, NextSteps: []string{"close"}},
			{ID: "close", Name: "Close", Type: models.StepTypeAutomatic},
		},
	}

	eng, _ := setupEngine(t, def)

	instance, err := eng.Start(ctx, "manual_then_auto", "case-1", nil)
	require.NoError(t, err)
	// The first step is manual; Start executes it without an operator, which
	// completes it and chains into the automatic close step.
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	require.Len(t, instance.History, 2)
	assert.Empty(t, instance.History[0].ExecutedBy)
	assert.Empty(t, instance.History[1].ExecutedBy)
}

func TestEngine_ExecuteStepByClearsOperatorForChainedSteps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "review_then_finalize",
		Steps: []models.StepDefinition{
			{ID: "hold", Name: "Hold", Type: models.StepTypeManual, NextSteps: []string{"review"}},
			{ID: "review", Name: "Review", Type: models.StepTypeManual, NextSteps: []string{"finalize"}},
			{ID: "finalize", Name: "Finalize", Type: models.StepTypeAutomatic},
		},
	}

	eng, _ := setupEngine(t, def)

	instance, err := eng.Start(ctx, "review_then_finalize", "case-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "review", instance.CurrentStep)

	require.NoError(t, eng.ExecuteStepBy(ctx, instance.ID, "review", "user-officer"))

	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	require.Len(t, instance.History, 3)
	assert.Equal(t, "user-officer", instance.History[1].ExecutedBy)
	assert.Empty(t, instance.History[2].ExecutedBy)
}

func TestEngine_ActionFailureFailsInstance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "failing_update",
		Steps: []models.StepDefinition{
			{
				ID:   "mark",
				Name: "Mark",
				Type: models.StepTypeAutomatic,
				Actions: []models.Action{
					{Type: models.ActionUpdateStatus, UpdateStatus: &models.UpdateStatusParams{Status: "in_review"}},
				},
				NextSteps: []string{"after"},
			},
			{ID: "after", Name: "After", Type: models.StepTypeManual},
		},
	}

	// No case row seeded, so update_status fails.
	eng, store := setupEngine(t, def)

	instance, err := eng.Start(ctx, "failing_update", "case-ghost", nil)
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusFailed, instance.Status)
	// The step pointer stays on the failed step.
	assert.Equal(t, "mark", instance.CurrentStep)
	assert.Nil(t, instance.CompletedAt)

	require.Len(t, instance.History, 1)
	assert.Equal(t, models.ExecutionStatusFailed, instance.History[0].Status)
	assert.NotEmpty(t, instance.History[0].Error)

	mirrored, err := store.Instances().GetByID(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusFailed, mirrored.Status)
}

func TestEngine_FailureStopsRemainingActions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "partial_actions",
		Steps: []models.StepDefinition{
			{
				ID:   "mixed",
				Name: "Mixed",
				Type: models.StepTypeAutomatic,
				Actions: []models.Action{
					{Type: models.ActionCreateTask, CreateTask: &models.CreateTaskParams{Title: "First task", Role: "ops"}},
					{Type: models.ActionUpdateStatus, UpdateStatus: &models.UpdateStatusParams{Status: "in_review"}},
					{Type: models.ActionCreateTask, CreateTask: &models.CreateTaskParams{Title: "Never created", Role: "ops"}},
				},
			},
		},
	}

	eng, _ := setupEngine(t, def)

	// case-ghost does not exist: the first task is created, the status update
	// fails, the third action never runs and there is no rollback.
	instance, err := eng.Start(ctx, "partial_actions", "case-ghost", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusFailed, instance.Status)
}

func TestEngine_ConditionalRouting(t *testing.T) {
	t.Parallel()

	def := &models.WorkflowDefinition{
		Name: "kyc_gate",
		Steps: []models.StepDefinition{
			{
				ID:   "gate",
				Name: "Gate",
				Type: models.StepTypeConditional,
				Conditions: []models.StepCondition{
					{Field: "kyc_status", Operator: models.OperatorEquals, Value: "verified", NextStep: "assess"},
					{Field: "kyc_status", Operator: models.OperatorEquals, Value: "pending", NextStep: "request_docs"},
					{Field: "kyc_status", Operator: models.OperatorNotEquals, Value: "", NextStep: "never_reached"},
				},
			},
			{ID: "assess", Name: "Assess", Type: models.StepTypeManual},
			{ID: "request_docs", Name: "Request Documents", Type: models.StepTypeManual},
			{ID: "never_reached", Name: "Never Reached", Type: models.StepTypeManual},
		},
	}

	tests := []struct {
		name         string
		data         map[string]any
		expectStep   string
		expectStatus models.InstanceStatus
	}{
		{
			name:         "first match wins",
			data:         map[string]any{"kyc_status": "verified"},
			expectStep:   "assess",
			expectStatus: models.InstanceStatusActive,
		},
		{
			name:         "second condition",
			data:         map[string]any{"kyc_status": "pending"},
			expectStep:   "request_docs",
			expectStatus: models.InstanceStatusActive,
		},
		{
			name: "no match completes the workflow",
			data: map[string]any{},
			// The conditional resolves to no next step, which is treated as a
			// terminal step.
			expectStep:   "gate",
			expectStatus: models.InstanceStatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eng, _ := setupEngine(t, def)

			instance, err := eng.Start(context.Background(), "kyc_gate", "case-1", tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expectStep, instance.CurrentStep)
			assert.Equal(t, tt.expectStatus, instance.Status)
		})
	}
}

func TestEngine_UnknownStep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "single_manual_step",
		Steps: []models.StepDefinition{
			{ID: "review", Name: "Review", Type: models.StepTypeManual},
		},
	}

	eng, _ := setupEngine(t, def)

	instance, err := eng.Start(ctx, "single_manual_step", "case-1", nil)
	require.NoError(t, err)

	err = eng.ExecuteStep(ctx, instance.ID, "not_a_step")
	assert.Error(t, err)
}

func TestEngine_UnknownInstance(t *testing.T) {
	t.Parallel()

	eng, _ := setupEngine(t)

	err := eng.ExecuteStep(context.Background(), "wfi-missing", "review")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownInstance)

	_, err = eng.Instance("wfi-missing")
	assert.ErrorIs(t, err, ErrUnknownInstance)
}

func TestEngine_SkipsUnregisteredActionTypes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	def := &models.WorkflowDefinition{
		Name: "escalating",
		Steps: []models.StepDefinition{
			{
				ID:      "notify",
				Name:    "Notify",
				Type:    models.StepTypeAutomatic,
				Actions: []models.Action{{Type: models.ActionEscalate}},
			},
		},
	}

	store := file.NewDataStore(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, reg.RegisterWorkflow(def))

	// No handlers registered at all: the action is skipped, the step completes.
	eng := New(reg, store, nil, slog.Default())

	instance, err := eng.Start(ctx, "escalating", "case-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	assert.Equal(t, models.ExecutionStatusCompleted, instance.History[0].Status)
}

func TestEngine_ResumeAndTrack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng, store := setupEngine(t)

	persisted := &models.WorkflowInstance{
		ID:           "wfi-dormant",
		WorkflowName: "loan_application",
		CaseID:       "case-1",
		CurrentStep:  "initial_review",
		Status:       models.InstanceStatusActive,
	}
	require.NoError(t, store.Instances().Save(ctx, persisted))

	require.NoError(t, eng.Resume(ctx))

	resumed, err := eng.Instance("wfi-dormant")
	require.NoError(t, err)
	assert.Equal(t, "initial_review", resumed.CurrentStep)

	// Track never replaces an instance the engine already owns.
	eng.Track(&models.WorkflowInstance{ID: "wfi-dormant", CurrentStep: "somewhere_else"})

	tracked, err := eng.Instance("wfi-dormant")
	require.NoError(t, err)
	assert.Equal(t, "initial_review", tracked.CurrentStep)

	assert.Len(t, eng.Instances(), 1)
}

func TestEngine_LoanApplicationEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store := file.NewDataStore(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, workflows.RegisterBuiltin(reg))

	dispatcher := notification.NewDispatcher(store, notification.DefaultSenders(slog.Default()), nil, slog.Default())
	RegisterDefaultHandlers(reg, store, dispatcher, slog.Default())

	eng := New(reg, store, nil, slog.Default())

	seedCase(t, store, "case-loan")

	instance, err := eng.Start(ctx, workflows.WorkflowLoanApplication, "case-loan", map[string]any{
		"caseNumber": "LN-case-loan",
		"kyc_status": "verified",
	})
	require.NoError(t, err)

	// The automatic intake step runs and hands off to the first manual step.
	assert.Equal(t, models.InstanceStatusActive, instance.Status)
	assert.Equal(t, "initial_review", instance.CurrentStep)
	require.Len(t, instance.History, 1)
	assert.Equal(t, "application_received", instance.History[0].StepID)

	c, err := store.Cases().GetByID(ctx, "case-loan")
	require.NoError(t, err)
	assert.Equal(t, "in_review", c.Status)

	inbox, err := store.Notifications().ListByRecipient(ctx, workflows.RoleLoanOfficer)
	require.NoError(t, err)
	assert.NotEmpty(t, inbox)

	// Complete the manual review, then the verified KYC routes the conditional
	// straight to credit assessment.
	require.NoError(t, eng.ExecuteStepBy(ctx, instance.ID, "initial_review", "user-officer"))
	assert.Equal(t, "document_verification", instance.CurrentStep)

	require.NoError(t, eng.ExecuteStepBy(ctx, instance.ID, "document_verification", "user-officer"))
	assert.Equal(t, "credit_assessment", instance.CurrentStep)

	require.NoError(t, eng.ExecuteStepBy(ctx, instance.ID, "credit_assessment", "user-analyst"))
	assert.Equal(t, "final_decision", instance.CurrentStep)

	require.NoError(t, eng.ExecuteStepBy(ctx, instance.ID, "final_decision", "user-manager"))
	assert.Equal(t, models.InstanceStatusCompleted, instance.Status)
	require.NotNil(t, instance.CompletedAt)

	c, err = store.Cases().GetByID(ctx, "case-loan")
	require.NoError(t, err)
	assert.Equal(t, "approved", c.Status)
}
