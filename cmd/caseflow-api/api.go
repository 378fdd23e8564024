// Package main provides the Caseflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/eventbus"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
	"github.com/bankops/caseflow/pkg/services"
	"github.com/bankops/caseflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	store    persistence.DataStore
	registry *registry.Registry
	eventBus eventbus.EventBus
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.DataStore,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		registry: registry,
		eventBus: eventBus,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	dispatcher := notification.NewDispatcher(a.store, notification.DefaultSenders(a.logger), a.eventBus, a.logger)
	engine.RegisterDefaultHandlers(a.registry, a.store, dispatcher, a.logger)

	eng := engine.New(a.registry, a.store, a.eventBus, a.logger)

	workflowService := services.NewWorkflow(eng, a.registry, a.store)
	notificationService := services.NewNotification(a.store)

	handlers := web.NewAPIHandlers(workflowService, notificationService, a.validate, a.store)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Caseflow API")
	})

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

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
