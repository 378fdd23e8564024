package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowInstance_LastExecution(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	instance := &WorkflowInstance{
		ID: "wfi-test",
		History: []StepExecution{
			{ID: "exe-1", StepID: "review", Status: ExecutionStatusFailed, ExecutedAt: base},
			{ID: "exe-2", StepID: "intake", Status: ExecutionStatusCompleted, ExecutedAt: base.Add(time.Hour)},
			{ID: "exe-3", StepID: "review", Status: ExecutionStatusCompleted, ExecutedAt: base.Add(2 * time.Hour)},
		},
	}

	execution := instance.LastExecution("review")
	require.NotNil(t, execution)
	assert.Equal(t, "exe-3", execution.ID)
	assert.Equal(t, ExecutionStatusCompleted, execution.Status)

	assert.Nil(t, instance.LastExecution("final_decision"))
}
