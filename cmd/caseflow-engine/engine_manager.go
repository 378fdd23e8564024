// Package main provides the Caseflow engine daemon.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bankops/caseflow/pkg/engine"
	"github.com/bankops/caseflow/pkg/eventbus"
	"github.com/bankops/caseflow/pkg/notification"
	"github.com/bankops/caseflow/pkg/persistence"
	"github.com/bankops/caseflow/pkg/registry"
	"github.com/bankops/caseflow/pkg/sla"
	"github.com/robfig/cron/v3"
)

// EngineManager owns the long-running poll loop: every tick it advances
// automatic steps, checks SLA deadlines and auto-starts workflows for
// unattached cases.
type EngineManager struct {
	id       string
	logger   *slog.Logger
	store    persistence.DataStore
	registry *registry.Registry
	eventBus eventbus.EventBus
	locker   sla.Locker
	schedule string
}

func NewEngineManager(
	id string,
	store persistence.DataStore,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	registry *registry.Registry,
	locker sla.Locker,
	schedule string,
) *EngineManager {
	return &EngineManager{
		id:       id,
		logger:   logger.With("module", "caseflow-engine", "engine_id", id),
		store:    store,
		registry: registry,
		eventBus: eventBus,
		locker:   locker,
		schedule: schedule,
	}
}

func (m *EngineManager) Start(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting engine manager", "schedule", m.schedule)

	dispatcher := notification.NewDispatcher(m.store, notification.DefaultSenders(m.logger), m.eventBus, m.logger)
	engine.RegisterDefaultHandlers(m.registry, m.store, dispatcher, m.logger)

	eng := engine.New(m.registry, m.store, m.eventBus, m.logger)

	err := eng.Resume(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to resume active instances", "error", err)

		return err
	}

	monitor := sla.NewMonitor(eng, m.store, m.registry, dispatcher, m.eventBus, m.logger)
	if m.locker != nil {
		monitor = monitor.WithLocker(m.locker)
	}

	scheduler := cron.New()

	_, err = scheduler.AddFunc(m.schedule, func() {
		m.tick(ctx, monitor)
	})
	if err != nil {
		return err
	}

	scheduler.Start()

	m.logger.InfoContext(ctx, "Engine manager started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	m.logger.InfoContext(ctx, "Shutting down engine manager...")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return nil
}

func (m *EngineManager) tick(ctx context.Context, monitor *sla.Monitor) {
	err := monitor.AutoStartWorkflows(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Auto-start pass failed", "error", err)
	}

	// ProcessActiveWorkflows SLA-checks every instance it touches, so the tick
	// needs no separate CheckViolations pass.
	err = monitor.ProcessActiveWorkflows(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Active workflow pass failed", "error", err)
	}
}
