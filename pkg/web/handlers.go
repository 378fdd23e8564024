// Package web provides HTTP handlers and REST API endpoints for workflow operations.
package web

import (
	"net/http"
	"time"

	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService     *services.Workflow
	notificationService *services.Notification
	validator           *validator.Validate
	store               persistence.DataStore
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	notificationService *services.Notification,
	validator *validator.Validate,
	store persistence.DataStore,
) *APIHandlers {
	return &APIHandlers{
		workflowService:     workflowService,
		notificationService: notificationService,
		validator:           validator,
		store:               store,
	}
}

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Workflow name is required")
	}

	var req StartWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.workflowService.Start(c.Context(), name, req.CaseID, req.Data)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := h.workflowService.Instance(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) GetInstances(c fiber.Ctx) error {
	instances, err := h.workflowService.List(c.Context(), c.Query("status"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"instances": instances,
		"count":     len(instances),
	})
}

func (h *APIHandlers) ExecuteStep(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	stepID := c.Params("stepID")
	if stepID == "" {
		return badRequest(c, "Step ID is required")
	}

	var req CompleteStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	instance, err := h.workflowService.CompleteStep(c.Context(), id, stepID, req.ExecutedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) GetNotifications(c fiber.Ctx) error {
	notifications, err := h.notificationService.ListByRecipient(c.Context(), c.Query("recipient"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (h *APIHandlers) GetNotificationStats(c fiber.Ctx) error {
	stats, err := h.notificationService.Stats(c.Context(), c.Query("recipient"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) MarkNotificationRead(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Notification ID is required")
	}

	err := h.notificationService.MarkRead(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeErr := h.store.HealthCheck(c.Context())

	status := "healthy"
	message := "Caseflow API is healthy"
	httpStatus := http.StatusOK

	if storeErr != nil {
		status = "unhealthy"
		message = "Caseflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
