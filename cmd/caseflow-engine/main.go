package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bankops/caseflow/pkg/cmd"
	"github.com/bankops/caseflow/pkg/lock"
	"github.com/bankops/caseflow/pkg/log"
	"github.com/bankops/caseflow/pkg/otelhelper"
	"github.com/bankops/caseflow/pkg/sla"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "caseflow-engine",
		EnableShellCompletion: true,
		Usage:                 "Run the workflow engine, SLA monitor and auto-start loop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "engine-id",
				Aliases: []string{"id"},
				Usage:   "Custom engine ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ENGINE_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for auto-start leases (optional, single-replica runs work without it)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "workflows-path",
				Usage:   "Path to a directory of JSON workflow definitions",
				Sources: cli.EnvVars("WORKFLOWS_PATH"),
			},
			&cli.StringFlag{
				Name:    "poll-schedule",
				Usage:   "Cron schedule for the engine poll loop",
				Value:   "@every 30s",
				Sources: cli.EnvVars("POLL_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := otelhelper.InitTracer(ctx, "caseflow-engine")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			engineID := command.String("engine-id")
			if engineID == "" {
				engineID = "engine-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("caseflow-engine").With("engine_id", engineID)

			logger.InfoContext(ctx, "Initializing Caseflow Engine")

			registry, err := cmd.NewRegistry(logger, command.String("workflows-path"))
			if err != nil {
				return err
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "caseflow-engine", logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store, err := cmd.NewDataStore(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close data store", "error", err)
				}
			}()

			var locker sla.Locker

			if redisURL := command.String("redis-url"); redisURL != "" {
				lease, err := lock.NewRedisLease(redisURL, engineID)
				if err != nil {
					return err
				}

				defer func() {
					err := lease.Close()
					if err != nil {
						logger.ErrorContext(ctx, "Failed to close redis lease", "error", err)
					}
				}()

				locker = lease
			}

			manager := NewEngineManager(
				engineID,
				store,
				eventBus,
				logger,
				registry,
				locker,
				command.String("poll-schedule"),
			)

			err = manager.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start engine manager", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
