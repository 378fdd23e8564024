package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
)

// Terminal case statuses written by the approve/reject actions.
const (
	caseStatusApproved = "approved"
	caseStatusRejected = "rejected"
)

var errMissingParams = errors.New("action params missing")

// RegisterDefaultHandlers binds the built-in action handlers to the registry.
func RegisterDefaultHandlers(reg *registry.Registry, store persistence.DataStore, dispatcher *notification.Dispatcher, logger *slog.Logger) {
	reg.RegisterHandler(models.ActionUpdateStatus, updateStatusHandler(store))
	reg.RegisterHandler(models.ActionAssignUser, assignUserHandler(store))
	reg.RegisterHandler(models.ActionSendNotification, sendNotificationHandler(dispatcher))
	reg.RegisterHandler(models.ActionCreateTask, createTaskHandler(store))
	reg.RegisterHandler(models.ActionApprove, setCaseStatusHandler(store, caseStatusApproved))
	reg.RegisterHandler(models.ActionReject, setCaseStatusHandler(store, caseStatusRejected))
	reg.RegisterHandler(models.ActionEscalate, escalateHandler(logger))
}

func updateStatusHandler(store persistence.DataStore) registry.ActionHandler {
	return func(ctx context.Context, action models.Action, instance *models.WorkflowInstance) (string, error) {
		if action.UpdateStatus == nil {
			return "", fmt.Errorf("update_status: %w", errMissingParams)
		}

		err := store.Cases().UpdateStatus(ctx, instance.CaseID, action.UpdateStatus.Status)
		if err != nil {
			return "", fmt.Errorf("update_status: %w", err)
		}

		return "case status set to " + action.UpdateStatus.Status, nil
	}
}

func assignUserHandler(store persistence.DataStore) registry.ActionHandler {
	return func(ctx context.Context, action models.Action, instance *models.WorkflowInstance) (string, error) {
		if action.AssignUser == nil {
			return "", fmt.Errorf("assign_user: %w", errMissingParams)
		}

		err := store.Cases().Assign(ctx, instance.CaseID, "", action.AssignUser.Role)
		if err != nil {
			return "", fmt.Errorf("assign_user: %w", err)
		}

		return "case assigned to role " + action.AssignUser.Role, nil
	}
}

func sendNotificationHandler(dispatcher *notification.Dispatcher) registry.ActionHandler {
	return func(ctx context.Context, action models.Action, instance *models.WorkflowInstance) (string, error) {
		if action.SendNotification == nil {
			return "", fmt.Errorf("send_notification: %w", errMissingParams)
		}

		params := action.SendNotification

		_, err := dispatcher.Send(ctx, notification.SendRequest{
			Type:          params.Template,
			Recipient:     params.Recipient,
			RecipientKind: params.RecipientKind,
			CaseID:        instance.CaseID,
			Data:          instance.Data,
			Priority:      params.Priority,
		})
		if err != nil {
			return "", fmt.Errorf("send_notification: %w", err)
		}

		return "notification " + params.Template + " dispatched", nil
	}
}

func createTaskHandler(store persistence.DataStore) registry.ActionHandler {
	return func(ctx context.Context, action models.Action, instance *models.WorkflowInstance) (string, error) {
		if action.CreateTask == nil {
			return "", fmt.Errorf("create_task: %w", errMissingParams)
		}

		params := action.CreateTask

		task := &models.Task{
			CaseID:       instance.CaseID,
			Title:        params.Title,
			AssignedRole: params.Role,
			Priority:     params.Priority,
		}

		err := store.Tasks().Create(ctx, task)
		if err != nil {
			return "", fmt.Errorf("create_task: %w", err)
		}

		return "task " + task.ID + " created", nil
	}
}

func setCaseStatusHandler(store persistence.DataStore, status string) registry.ActionHandler {
	return func(ctx context.Context, action models.Action, instance *models.WorkflowInstance) (string, error) {
		err := store.Cases().UpdateStatus(ctx, instance.CaseID, status)
		if err != nil {
			return "", fmt.Errorf("%s: %w", action.Type, err)
		}

		return "case " + status, nil
	}
}

// escalateHandler is intentionally inert: escalation routing was never
// specified beyond raising visibility, so it only logs.
func escalateHandler(logger *slog.Logger) registry.ActionHandler {
	return func(ctx context.Context, _ models.Action, instance *models.WorkflowInstance) (string, error) {
		logger.WarnContext(ctx, "Escalation requested",
			"instance_id", instance.ID, "case_id", instance.CaseID, "step", instance.CurrentStep)

		return "escalation logged", nil
	}
}
