// Package models defines the core domain models for case workflow automation.
package models

// StepType classifies how a step progresses.
type StepType string

const (
	StepTypeAutomatic   StepType = "automatic"   // Executed by the engine without human input
	StepTypeManual      StepType = "manual"      // Completed by an operator
	StepTypeConditional StepType = "conditional" // Next step chosen by condition rules
)

// WorkflowDefinition is an immutable, named, ordered list of steps. Definitions
// are registered once at process start and treated as read-only afterwards.
type WorkflowDefinition struct {
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	Steps       []StepDefinition `json:"steps"       validate:"required,min=1,dive"`
}

// FirstStep returns the initial step of the definition.
func (d *WorkflowDefinition) FirstStep() *StepDefinition {
	if len(d.Steps) == 0 {
		return nil
	}

	return &d.Steps[0]
}

// Step returns the step with the given id, or nil.
func (d *WorkflowDefinition) Step(id string) *StepDefinition {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i]
		}
	}

	return nil
}

type StepDefinition struct {
	ID           string          `json:"id"   validate:"required"`
	Name         string          `json:"name" validate:"required"`
	Type         StepType        `json:"type" validate:"required,oneof=automatic manual conditional"`
	Actions      []Action        `json:"actions,omitempty" validate:"dive"`
	NextSteps    []string        `json:"next_steps,omitempty"`
	Conditions   []StepCondition `json:"conditions,omitempty" validate:"dive"`
	AssignedRole string          `json:"assigned_role,omitempty"`
	SLAHours     float64         `json:"sla_hours,omitempty"`
}
