package web

// StartWorkflowRequest launches a workflow for a case.
type StartWorkflowRequest struct {
	CaseID string         `json:"case_id" validate:"required"`
	Data   map[string]any `json:"data"`
}

// CompleteStepRequest records the operator finishing a manual step.
type CompleteStepRequest struct {
	ExecutedBy string `json:"executed_by"`
}
