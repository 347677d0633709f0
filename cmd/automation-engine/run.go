package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/agencykit/automation/pkg/engine"
	"github.com/agencykit/automation/pkg/protocol"
	trc "github.com/agencykit/automation/pkg/tracer"
)

func NewRunCommand() *cli.Command {
	flags := append(engineFlags(),
		&cli.IntFlag{
			Name:    "daily-run-hour",
			Usage:   "UTC hour of the daily full cycle (0-23)",
			Value:   defaultDailyRunHour,
			Sources: cli.EnvVars("DAILY_RUN_HOUR"),
		},
	)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the scheduled tick loop",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := setupLogger(command, "automation-engine")

			hour := command.Int("daily-run-hour")
			if hour < 0 || hour > 23 {
				return fmt.Errorf("daily-run-hour must be between 0 and 23, got %d", hour)
			}

			tracerProvider, err := trc.InitTracer(ctx, "automation-engine")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			e, _, cleanup := buildEngine(ctx, command, logger)
			defer cleanup()

			return runScheduler(ctx, e, logger, hour)
		},
	}
}

// runScheduler drives the tick cadence: a full cycle daily at the configured
// UTC hour, refresh hourly on top of that, and verify plus send every half
// hour so delays and paced sends fire close to their targets.
func runScheduler(ctx context.Context, e *engine.Engine, logger *slog.Logger, dailyHour int) error {
	scheduler := cron.New(cron.WithLocation(time.UTC))

	if _, err := scheduler.AddFunc(fmt.Sprintf("0 %d * * *", dailyHour), func() {
		runTick(ctx, logger, "refresh", e.Refresh)
		runTick(ctx, logger, "verify", e.Verify)
		runTick(ctx, logger, "send", e.Send)
	}); err != nil {
		return fmt.Errorf("failed to schedule daily cycle: %w", err)
	}

	if _, err := scheduler.AddFunc("0 * * * *", func() {
		runTick(ctx, logger, "refresh", e.Refresh)
	}); err != nil {
		return fmt.Errorf("failed to schedule hourly refresh: %w", err)
	}

	if _, err := scheduler.AddFunc("*/30 * * * *", func() {
		runTick(ctx, logger, "verify", e.Verify)
		runTick(ctx, logger, "send", e.Send)
	}); err != nil {
		return fmt.Errorf("failed to schedule verify and send: %w", err)
	}

	logger.Info("Starting tick scheduler", "daily_run_hour", dailyHour)

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()

	logger.Info("Shutting down tick scheduler")

	return nil
}

func runTick(ctx context.Context, logger *slog.Logger, name string, tick func(context.Context) (engine.TickResult, error)) {
	result, err := tick(ctx)
	if err != nil {
		if errors.Is(err, protocol.ErrLockHeld) {
			logger.Warn("Skipping tick, lock held", "action", name)

			return
		}

		logger.Error("Tick failed", "action", name, "error", err)

		return
	}

	logResult(logger, result)
}

func logResult(logger *slog.Logger, result engine.TickResult) {
	logger.Info("Tick finished",
		"action", result.Action,
		"processed", result.Processed,
		"enrolled", result.Enrolled,
		"resumed", result.Resumed,
		"sent", result.Sent,
		"failures", len(result.Failures),
	)

	for _, failure := range result.Failures {
		logger.Error("Tick failure",
			"action", result.Action,
			"automation_id", failure.AutomationID,
			"enrollment_id", failure.EnrollmentID,
			"contact_id", failure.ContactID,
			"error", failure.Err,
		)
	}
}
