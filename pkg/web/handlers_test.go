package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/models"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence/file"
	"github.com/bankops/caseflow/pkg/registry"
	"github.com/bankops/caseflow/pkg/services"
	"github.com/bankops/caseflow/pkg/web"
	"github.com/bankops/caseflow/pkg/workflows"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.DataStore) {
	t.Helper()

	store := file.NewDataStore(t.TempDir())
	reg := registry.NewRegistry(slog.Default())
	require.NoError(t, workflows.RegisterBuiltin(reg))

	dispatcher := notification.NewDispatcher(store, notification.DefaultSenders(slog.Default()), nil, slog.Default())
	engine.RegisterDefaultHandlers(reg, store, dispatcher, slog.Default())

	eng := engine.New(reg, store, nil, slog.Default())

	workflowService := services.NewWorkflow(eng, reg, store)
	notificationService := services.NewNotification(store)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(workflowService, notificationService, validate, store)

	app := fiber.New()
	app.Post("/workflows/:name/start", handlers.StartWorkflow)

	i := app.Group("/instances")
	i.Get("/", handlers.GetInstances)
	i.Get("/:id", handlers.GetInstance)
	i.Post("/:id/steps/:stepID/execute", handlers.ExecuteStep)

	n := app.Group("/notifications")
	n.Get("/", handlers.GetNotifications)
	n.Get("/stats", handlers.GetNotificationStats)
	n.Post("/:id/read", handlers.MarkNotificationRead)

	app.Get("/health", handlers.HealthCheck)

	return app, store
}

func seedOpenCase(t *testing.T, store *file.DataStore, id string) {
	t.Helper()

	require.NoError(t, store.Cases().Save(context.Background(), &models.Case{
		ID:         id,
		CaseNumber: "LN-" + id,
		Status:     models.CaseStatusOpen,
		CustomerID: "cust-1",
		LoanAmount: 50000,
	}))
}

func startInstance(t *testing.T, app *fiber.App, workflowName, caseID string, data map[string]any) *models.WorkflowInstance {
	t.Helper()

	body, err := json.Marshal(web.StartWorkflowRequest{CaseID: caseID, Data: data})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/workflows/"+workflowName+"/start", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var instance models.WorkflowInstance

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &instance))

	return &instance
}

func TestStartWorkflow(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	seedOpenCase(t, store, "case-1")

	instance := startInstance(t, app, workflows.WorkflowLoanApplication, "case-1", nil)
	assert.Equal(t, "initial_review", instance.CurrentStep)
	assert.Equal(t, models.InstanceStatusActive, instance.Status)
}

func TestStartWorkflow_Errors(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	seedOpenCase(t, store, "case-1")

	tests := []struct {
		name           string
		url            string
		body           string
		expectedStatus int
	}{
		{
			name:           "unknown workflow",
			url:            "/workflows/missing_workflow/start",
			body:           `{"case_id": "case-1"}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing case id",
			url:            "/workflows/loan_application/start",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			url:            "/workflows/loan_application/start",
			body:           `{"case_id":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, tt.url, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestGetInstance(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	seedOpenCase(t, store, "case-1")

	created := startInstance(t, app, workflows.WorkflowLoanApplication, "case-1", nil)

	req := httptest.NewRequest(http.MethodGet, "/instances/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var instance models.WorkflowInstance

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &instance))
	assert.Equal(t, created.ID, instance.ID)

	req = httptest.NewRequest(http.MethodGet, "/instances/wfi-missing", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetInstances(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	seedOpenCase(t, store, "case-1")

	startInstance(t, app, workflows.WorkflowLoanApplication, "case-1", nil)

	req := httptest.NewRequest(http.MethodGet, "/instances/?status=active", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Instances []*models.WorkflowInstance `json:"instances"`
		Count     int                        `json:"count"`
	}

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.Equal(t, 1, result.Count)

	req = httptest.NewRequest(http.MethodGet, "/instances/?status=archived", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExecuteStep(t *testing.T) {
	t.Parallel()

	app, store := setupTestApp(t)
	seedOpenCase(t, store, "case-1")

	created := startInstance(t, app, workflows.WorkflowLoanApplication, "case-1", map[string]any{"kyc_status": "verified"})

	body := bytes.NewBufferString(`{"executed_by": "user-officer"}`)
	req := httptest.NewRequest(http.MethodPost, "/instances/"+created.ID+"/steps/initial_review/execute", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var instance models.WorkflowInstance

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &instance))
	assert.Equal(t, "document_verification", instance.CurrentStep)

	// Completing a step that is not current conflicts.
	body = bytes.NewBufferString(`{"executed_by": "user-officer"}`)
	req = httptest.NewRequest(http.MethodPost, "/instances/"+created.ID+"/steps/initial_review/execute", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNotificationEndpoints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	app, store := setupTestApp(t)

	require.NoError(t, store.Notifications().Create(ctx, &models.Notification{
		Type:      "status_update",
		Recipient: "user-1",
		Priority:  models.PriorityMedium,
	}))

	req := httptest.NewRequest(http.MethodGet, "/notifications/?recipient=user-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inbox struct {
		Notifications []*models.Notification `json:"notifications"`
		Count         int                    `json:"count"`
	}

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &inbox))
	require.Equal(t, 1, inbox.Count)

	req = httptest.NewRequest(http.MethodPost, "/notifications/"+inbox.Notifications[0].ID+"/read", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/notifications/stats?recipient=user-1", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats models.NotificationStats

	payload, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Unread)

	// Missing recipient is a validation error.
	req = httptest.NewRequest(http.MethodGet, "/notifications/", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
