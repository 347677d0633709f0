package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/agencykit/automation/pkg/engine"
)

// NewTickCommand builds a one-shot command for a single tick action, for
// cron-less deployments and manual operations.
func NewTickCommand(action, usage string) *cli.Command {
	return &cli.Command{
		Name:  action,
		Usage: usage,
		Flags: engineFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := setupLogger(command, "automation-engine").With("action", action)

			e, _, cleanup := buildEngine(ctx, command, logger)
			defer cleanup()

			var tick func(context.Context) (engine.TickResult, error)

			switch action {
			case "refresh":
				tick = e.Refresh
			case "verify":
				tick = e.Verify
			case "send":
				tick = e.Send
			default:
				return fmt.Errorf("unknown tick action %q", action)
			}

			result, err := tick(ctx)
			if err != nil {
				return err
			}

			logResult(logger, result)

			if len(result.Failures) > 0 {
				return fmt.Errorf("%d enrollments failed during %s", len(result.Failures), action)
			}

			return nil
		},
	}
}
