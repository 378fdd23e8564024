package models

import "time"

// InstanceStatus is the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusPaused    InstanceStatus = "paused"
	InstanceStatusFailed    InstanceStatus = "failed"
)

// ExecutionStatus is the state of a single step execution record.
type ExecutionStatus string

const (
	ExecutionStatusPending    ExecutionStatus = "pending"
	ExecutionStatusInProgress ExecutionStatus = "in_progress"
	ExecutionStatusCompleted  ExecutionStatus = "completed"
	ExecutionStatusFailed     ExecutionStatus = "failed"
	ExecutionStatusSkipped    ExecutionStatus = "skipped"
)

// WorkflowInstance is one execution of a workflow definition against one case.
// It is mutated exclusively by the engine; the persisted copy is a mirror, not
// a second writer. Instances are never deleted, they only reach a terminal
// status.
type WorkflowInstance struct {
	ID           string          `json:"id"`
	WorkflowName string          `json:"workflow_name"`
	CaseID       string          `json:"case_id"`
	CurrentStep  string          `json:"current_step"`
	Status       InstanceStatus  `json:"status"`
	Data         map[string]any  `json:"data,omitempty"`
	History      []StepExecution `json:"history"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// LastExecution returns the most recent history entry for the given step, or
// nil when the step has never been executed.
func (i *WorkflowInstance) LastExecution(stepID string) *StepExecution {
	for idx := len(i.History) - 1; idx >= 0; idx-- {
		if i.History[idx].StepID == stepID {
			return &i.History[idx]
		}
	}

	return nil
}

// StepExecution is an append-only audit record. Once appended it is never
// modified except for the status/result transition of the entry itself while
// the step runs.
type StepExecution struct {
	ID         string          `json:"id"`
	StepID     string          `json:"step_id"`
	Status     ExecutionStatus `json:"status"`
	ExecutedAt time.Time       `json:"executed_at"`
	ExecutedBy string          `json:"executed_by,omitempty"`
	Result     string          `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
}
