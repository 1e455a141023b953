package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/iojson"
)

type SubtaskCmd struct {
	flags *Flags
	app   *tasky.App
}

// NewSubtaskCmd creates a new subtask command
func NewSubtaskCmd(flags *Flags, app *tasky.App) *SubtaskCmd {
	return &SubtaskCmd{flags: flags, app: app}
}

// Register adds the subtask command to the application
func (cmd *SubtaskCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "subtask",
		Usage: "Update subtasks",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "Set a subtask status and reconcile its main task",
				UsageText: "tasky subtask status <id> <PENDING|IN_PROGRESS|COMPLETED|CANCELLED>",
				Description: `Writes the subtask status and, in the same transaction, moves the main
task to IN_PROGRESS or COMPLETED when the change calls for it. The output
shows whether the main task was updated.`,
				Action: cmd.runStatus,
			},
		},
	})

	return app
}

func (cmd *SubtaskCmd) runStatus(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "subtask id")
	if err != nil {
		return err
	}
	status, err := requireArg(c, 1, "status")
	if err != nil {
		return err
	}

	res, err := cmd.app.Tasks.UpdateSubtaskStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("update subtask: %w", err)
	}
	return iojson.WriteWith(c.Root().Writer, os.Stderr, res)
}
