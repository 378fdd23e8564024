// Package workflows declares the built-in workflow definitions.
package workflows

import (
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/registry"
)

// WorkflowLoanApplication is the definition auto-started for new open cases.
const WorkflowLoanApplication = "loan_application"

// Roles referenced by the built-in definitions.
const (
	RoleLoanOfficer   = "loan_officer"
	RoleCreditAnalyst = "credit_analyst"
	RoleManager       = "manager"
)

// RegisterBuiltin registers every built-in workflow definition.
func RegisterBuiltin(reg *registry.Registry) error {
	return reg.RegisterWorkflow(LoanApplication())
}

// LoanApplication is the standard loan processing flow: intake, review,
// document verification with a KYC-driven branch, credit assessment and the
// final decision.
func LoanApplication() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		Name:        WorkflowLoanApplication,
		Description: "Standard loan application processing",
		Steps: []models.StepDefinition{
			{
				ID:   "application_received",
				Name: "Application Received",
				Type: models.StepTypeAutomatic,
				Actions: []models.Action{
					{
						Type:         models.ActionUpdateStatus,
						UpdateStatus: &models.UpdateStatusParams{Status: "in_review"},
					},
					{
						Type: models.ActionSendNotification,
						SendNotification: &models.SendNotificationParams{
							Template:      "application_received",
							Recipient:     RoleLoanOfficer,
							RecipientKind: models.RecipientRole,
						},
					},
					{
						Type: models.ActionCreateTask,
						CreateTask: &models.CreateTaskParams{
							Title:    "Perform initial review",
							Role:     RoleLoanOfficer,
							Priority: "medium",
						},
					},
				},
				NextSteps: []string{"initial_review"},
			},
			{
				ID:   "initial_review",
				Name: "Initial Review",
				Type: models.StepTypeManual,
				Actions: []models.Action{
					{
						Type:       models.ActionAssignUser,
						AssignUser: &models.AssignUserParams{Role: RoleLoanOfficer},
					},
				},
				NextSteps:    []string{"document_verification"},
				AssignedRole: RoleLoanOfficer,
				SLAHours:     24,
			},
			{
				ID:   "document_verification",
				Name: "Document Verification",
				Type: models.StepTypeConditional,
				Conditions: []models.StepCondition{
					{Field: "kyc_status", Operator: models.OperatorEquals, Value: "verified", NextStep: "credit_assessment"},
					{Field: "kyc_status", Operator: models.OperatorEquals, Value: "pending", NextStep: "document_request"},
				},
				AssignedRole: RoleLoanOfficer,
				SLAHours:     48,
			},
			{
				ID:   "document_request",
				Name: "Document Request",
				Type: models.StepTypeManual,
				Actions: []models.Action{
					{
						Type: models.ActionSendNotification,
						SendNotification: &models.SendNotificationParams{
							Template:      "document_required",
							Recipient:     RoleLoanOfficer,
							RecipientKind: models.RecipientRole,
						},
					},
				},
				NextSteps:    []string{"document_verification"},
				AssignedRole: RoleLoanOfficer,
				SLAHours:     72,
			},
			{
				ID:   "credit_assessment",
				Name: "Credit Assessment",
				Type: models.StepTypeManual,
				Actions: []models.Action{
					{
						Type: models.ActionCreateTask,
						CreateTask: &models.CreateTaskParams{
							Title:    "Assess applicant creditworthiness",
							Role:     RoleCreditAnalyst,
							Priority: "high",
						},
					},
				},
				NextSteps:    []string{"final_decision"},
				AssignedRole: RoleCreditAnalyst,
				SLAHours:     48,
			},
			{
				ID:   "final_decision",
				Name: "Final Decision",
				Type: models.StepTypeManual,
				Actions: []models.Action{
					{Type: models.ActionApprove},
					{
						Type: models.ActionSendNotification,
						SendNotification: &models.SendNotificationParams{
							Template:      "approval_granted",
							Recipient:     RoleLoanOfficer,
							RecipientKind: models.RecipientRole,
						},
					},
				},
				AssignedRole: RoleManager,
				SLAHours:     24,
			},
		},
	}
}
