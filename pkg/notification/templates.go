// Package notification formats templated messages and fans them out to delivery channels.
package notification

import (
	"fmt"
	"strings"

	"github.com/bankops/caseflow/pkg/models"
)

// Template is one named message layout. The table below is populated once at
// process start and never modified at runtime.
type Template struct {
	Type     string
	Title    string
	Message  string
	Channels []models.Channel
	Priority models.NotificationPriority
}

var templates = map[string]Template{
	"application_received": {
		Type:     "application_received",
		Title:    "Application Received",
		Message:  "Loan application {caseNumber} has been received and is now being processed.",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
		Priority: models.PriorityMedium,
	},
	"status_update": {
		Type:     "status_update",
		Title:    "Application Status Update",
		Message:  "Your application {caseNumber} status changed to {status}.",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
		Priority: models.PriorityMedium,
	},
	"document_required": {
		Type:     "document_required",
		Title:    "Documents Required",
		Message:  "Additional documents are required for application {caseNumber}: {documents}.",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelInApp},
		Priority: models.PriorityHigh,
	},
	"approval_granted": {
		Type:     "approval_granted",
		Title:    "Application Approved",
		Message:  "Congratulations {customerName}! Your loan application {caseNumber} for {loanAmount} has been approved.",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelPush, models.ChannelInApp},
		Priority: models.PriorityHigh,
	},
	"application_rejected": {
		Type:     "application_rejected",
		Title:    "Application Decision",
		Message:  "We regret to inform you that application {caseNumber} could not be approved at this time.",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
		Priority: models.PriorityHigh,
	},
	"sla_violation": {
		Type:     "sla_violation",
		Title:    "SLA Violation",
		Message:  "Step {stepName} of case {caseNumber} exceeded its SLA of {slaHours}h (elapsed: {elapsedHours}h).",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelInApp},
		Priority: models.PriorityUrgent,
	},
	"task_assigned": {
		Type:     "task_assigned",
		Title:    "New Task Assigned",
		Message:  "Task \"{taskTitle}\" for case {caseNumber} has been assigned to the {role} team.",
		Channels: []models.Channel{models.ChannelInApp},
		Priority: models.PriorityMedium,
	},
}

// LookupTemplate returns the registered template for a notification type.
func LookupTemplate(notificationType string) (Template, bool) {
	t, ok := templates[notificationType]

	return t, ok
}

// substitute replaces every {key} placeholder with its value from data.
// Placeholders without a matching key are left as literal text; several call
// sites pre-format their messages and rely on this.
func substitute(text string, data map[string]any) string {
	for key, value := range data {
		text = strings.ReplaceAll(text, "{"+key+"}", fmt.Sprintf("%v", value))
	}

	return text
}
