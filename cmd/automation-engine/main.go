package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "automation-engine",
		Usage:                 "Run the marketing automation engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewRunCommand(),
			NewTickCommand("refresh", "Enroll newly matching contacts"),
			NewTickCommand("verify", "Resume enrollments whose delays are due"),
			NewTickCommand("send", "Execute pending send_email steps"),
			NewValidateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
