package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/agencykit/automation/pkg/catalog"
	"github.com/agencykit/automation/pkg/cmd"
	"github.com/agencykit/automation/pkg/filter"
	"github.com/agencykit/automation/pkg/models"
)

var ErrInvalidAutomations = errors.New("invalid automations found")

// NewValidateCommand checks every stored automation: graph shape, pacing and
// re-entry config, and filter rules against the condition catalog.
func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored automations against the condition catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := setupLogger(command, "automation-engine").With("action", "validate")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			automations, err := persistence.AutomationRepository().All(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch automations: %w", err)
			}

			registry := catalog.Builtin()
			evaluator := filter.NewEvaluator(registry)
			invalid := 0

			fmt.Fprintln(os.Stdout, "Automation Validation Results:")
			fmt.Fprintln(os.Stdout, "==============================")

			for _, automation := range automations {
				fmt.Fprintf(os.Stdout, "\nAutomation: %s (%s)\n", automation.Name, automation.ID)

				problems := validateAutomation(automation, registry)
				if len(problems) == 0 {
					active := evaluator.ActiveFilterCount(automation.Filter)
					fmt.Fprintf(os.Stdout, "  VALID (%d configured filter rules)\n", active)

					continue
				}

				invalid++

				for _, problem := range problems {
					fmt.Fprintf(os.Stdout, "  INVALID: %s\n", problem)
				}
			}

			fmt.Fprintf(os.Stdout, "\nValidation Summary: %d total, %d invalid\n", len(automations), invalid)

			if invalid > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidAutomations, invalid)
			}

			return nil
		},
	}
}

func validateAutomation(automation *models.Automation, registry *catalog.Registry) []string {
	var problems []string

	graph, err := automation.Graph()
	if err != nil {
		problems = append(problems, "graph: "+err.Error())
	} else if err := graph.Validate(); err != nil {
		problems = append(problems, "graph: "+err.Error())
	}

	if err := automation.Pacing.Validate(); err != nil {
		problems = append(problems, "pacing: "+err.Error())
	}

	if err := automation.Reentry.Validate(); err != nil {
		problems = append(problems, "reentry: "+err.Error())
	}

	for _, group := range automation.Filter.Groups {
		for _, rule := range group.Rules {
			if rule.ConditionID == "" {
				continue
			}

			if _, ok := registry.Get(rule.ConditionID); !ok {
				problems = append(problems, "filter: unknown condition "+rule.ConditionID)
			}
		}
	}

	return problems
}
