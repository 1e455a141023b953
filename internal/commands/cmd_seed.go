package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/tasky"
)

// seedDraft is the demo task created by `tasky seed`.
var seedDraft = task.Draft{
	Title:  "Test Main Task",
	Status: task.StatusPending,
	Subtasks: []task.SubtaskDraft{
		{Title: "Subtask One", Description: "The first subtask.", Status: task.StatusPending, Duration: 30},
		{Title: "Subtask Two", Description: "The second subtask.", Status: task.StatusPending, Duration: 45},
	},
}

type SeedCmd struct {
	flags *Flags
	app   *tasky.App
}

// NewSeedCmd creates a new seed command
func NewSeedCmd(flags *Flags, app *tasky.App) *SeedCmd {
	return &SeedCmd{flags: flags, app: app}
}

// Register adds the seed command to the application
func (cmd *SeedCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "seed",
		Usage:       "Create a demo user with one task",
		UsageText:   "tasky seed",
		Description: "Creates a new user owning a PENDING main task with two subtasks (75 minutes total).",
		Action:      cmd.run,
	})

	return app
}

func (cmd *SeedCmd) run(ctx context.Context, c *cli.Command) error {
	u, err := cmd.app.Users.Create(ctx, "")
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	mt, err := cmd.app.Generate.CreateTask(ctx, u.ID, seedDraft)
	if err != nil {
		return fmt.Errorf("seed task: %w", err)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "Seeded user: %s\n", u.ID)
	_, _ = fmt.Fprintf(out, "Seeded main task: %s\n", mt.ID)
	for _, s := range mt.Subtasks {
		_, _ = fmt.Fprintf(out, "  Seeded subtask: %s\n", s.ID)
	}
	return nil
}
