// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic all workflow lifecycle events are published to.
const Topic = "caseflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"

	StepCompletedEvent EventType = "workflow.step.completed"
	StepFailedEvent    EventType = "workflow.step.failed"

	SLAViolatedEvent      EventType = "workflow.sla.violated"
	NotificationSentEvent EventType = "notification.sent"
)

type BaseEvent struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	WorkflowName string    `json:"workflow_name,omitempty"`
	InstanceID   string    `json:"instance_id,omitempty"`
	CaseID       string    `json:"case_id,omitempty"`
}

// NewBaseEvent fills the common envelope for an event.
func NewBaseEvent(eventType EventType, workflowName, instanceID, caseID string) BaseEvent {
	return BaseEvent{
		ID:           "evt-" + uuid.New().String()[:8],
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		WorkflowName: workflowName,
		InstanceID:   instanceID,
		CaseID:       caseID,
	}
}

type WorkflowStarted struct {
	BaseEvent

	InitialData map[string]any `json:"initial_data,omitempty"`
}

func (e WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	StepID string `json:"step_id"`
	Error  string `json:"error"`
}

func (e WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type StepCompleted struct {
	BaseEvent

	StepID     string `json:"step_id"`
	NextStepID string `json:"next_step_id,omitempty"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	StepID string `json:"step_id"`
	Error  string `json:"error"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}

type SLAViolated struct {
	BaseEvent

	StepID       string  `json:"step_id"`
	SLAHours     float64 `json:"sla_hours"`
	ElapsedHours float64 `json:"elapsed_hours"`
}

func (e SLAViolated) GetType() EventType {
	return SLAViolatedEvent
}

type NotificationSent struct {
	BaseEvent

	NotificationID string `json:"notification_id"`
	Template       string `json:"template"`
	Recipient      string `json:"recipient"`
}

func (e NotificationSent) GetType() EventType {
	return NotificationSentEvent
}
