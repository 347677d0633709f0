package main

import (
	"context"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/cmd"
	"github.com/agencykit/automation/pkg/engine"
	"github.com/agencykit/automation/pkg/log"
	"github.com/agencykit/automation/pkg/mailer"
	"github.com/agencykit/automation/pkg/persistence"
)

const defaultDailyRunHour = 6

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (kafka, gochannel); empty disables events",
			Value:   "",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "lock-url",
			Usage:   "Run lock location (directory path or redis:// URL)",
			Value:   "./data/locks",
			Sources: cli.EnvVars("LOCK_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// buildEngine wires the engine and its collaborators from CLI flags. The
// returned cleanup closes the event bus and persistence.
func buildEngine(ctx context.Context, command *cli.Command, logger *slog.Logger) (*engine.Engine, persistence.Persistence, func()) {
	p := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	runLock := cmd.NewRunLock(command.String("lock-url"))

	e := engine.New(engine.Config{
		Persistence: p,
		Catalog:     catalog.Builtin(),
		Mailer:      mailer.NewLogMailer(logger),
		EventBus:    eventBus,
		Lock:        runLock,
		Logger:      logger,
	})

	cleanup := func() {
		if eventBus != nil {
			if err := eventBus.Close(); err != nil {
				logger.Error("Failed to close event bus", "error", err)
			}
		}

		if err := p.Close(ctx); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}

	return e, p, cleanup
}

func setupLogger(command *cli.Command, module string) *slog.Logger {
	log.Setup(command.String("log-level"))

	return log.WithModule(module)
}
