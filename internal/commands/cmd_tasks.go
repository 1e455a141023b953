package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/core/task"
	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/iojson"
	"github.com/colonyops/tasky/pkg/render"
)

type TasksCmd struct {
	flags *Flags
	app   *tasky.App

	// flags
	jsonOutput bool
}

// NewTasksCmd creates a new tasks command
func NewTasksCmd(flags *Flags, app *tasky.App) *TasksCmd {
	return &TasksCmd{flags: flags, app: app}
}

// Register adds the tasks command to the application
func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := &cli.BoolFlag{
		Name:        "json",
		Usage:       "output as JSON",
		Destination: &cmd.jsonOutput,
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "tasks",
		Usage: "Inspect and update stored main tasks",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List a user's main tasks, newest first",
				UsageText: "tasky tasks list [--user <id>] [--json]",
				Flags:     []cli.Flag{jsonFlag},
				Action:    cmd.runList,
			},
			{
				Name:          "show",
				Usage:         "Show a main task with its subtasks",
				UsageText:     "tasky tasks show <id> [--json]",
				Flags:         []cli.Flag{jsonFlag},
				ShellComplete: TaskIDCompleter(cmd.flags, cmd.app),
				Action:        cmd.runShow,
			},
			{
				Name:          "status",
				Usage:         "Set a main task status directly",
				UsageText:     "tasky tasks status <id> <PENDING|IN_PROGRESS|COMPLETED|CANCELLED>",
				ShellComplete: TaskIDCompleter(cmd.flags, cmd.app),
				Action:        cmd.runStatus,
			},
			{
				Name:          "delete",
				Usage:         "Delete a main task and its subtasks",
				UsageText:     "tasky tasks delete <id>",
				ShellComplete: TaskIDCompleter(cmd.flags, cmd.app),
				Action:        cmd.runDelete,
			},
		},
	})

	return app
}

func (cmd *TasksCmd) runList(ctx context.Context, c *cli.Command) error {
	tasks, err := cmd.app.Tasks.ListTasks(ctx, cmd.flags.User)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, t := range tasks {
			if err := iojson.WriteLine(out, t); err != nil {
				return fmt.Errorf("encode task: %w", err)
			}
		}
		return nil
	}

	if len(tasks) == 0 {
		fmt.Fprintf(os.Stderr, "No tasks found\n")
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, taskRow(t, render.IsTerminal(out)))
	}
	return render.Table(out, []string{"ID", "STATUS", "DURATION", "SUBTASKS", "TITLE"}, rows)
}

func taskRow(t task.MainTask, styled bool) []string {
	status := string(t.Status)
	if styled {
		status = render.Status(status)
	}

	duration := "-"
	if t.Duration != nil {
		duration = strconv.Itoa(*t.Duration) + "m"
	}

	done := 0
	for _, s := range t.Subtasks {
		if s.Status == task.StatusCompleted {
			done++
		}
	}

	return []string{t.ID, status, duration, fmt.Sprintf("%d/%d", done, len(t.Subtasks)), t.Title}
}

func (cmd *TasksCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "task id")
	if err != nil {
		return err
	}

	t, err := cmd.app.Tasks.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput || !render.IsTerminal(out) {
		return iojson.WriteWith(out, os.Stderr, t)
	}
	return render.Markdown(out, t.Markdown())
}

func (cmd *TasksCmd) runStatus(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "task id")
	if err != nil {
		return err
	}
	status, err := requireArg(c, 1, "status")
	if err != nil {
		return err
	}

	t, err := cmd.app.Tasks.UpdateTaskStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return iojson.WriteWith(c.Root().Writer, os.Stderr, t)
}

func (cmd *TasksCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, 0, "task id")
	if err != nil {
		return err
	}

	t, err := cmd.app.Tasks.DeleteTask(ctx, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Deleted %q and %d subtask(s)\n", t.Title, len(t.Subtasks))
	return nil
}

// requireArg returns the positional argument at i or a usage error naming it.
func requireArg(c *cli.Command, i int, name string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", fmt.Errorf("%s required, see '%s --help'", name, c.FullName())
	}
	return v, nil
}
