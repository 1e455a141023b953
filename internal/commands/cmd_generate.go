package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/iojson"
)

type GenerateCmd struct {
	flags *Flags
	app   *tasky.App

	input iojson.TextReader
}

// NewGenerateCmd creates a new generate command
func NewGenerateCmd(flags *Flags, app *tasky.App) *GenerateCmd {
	return &GenerateCmd{flags: flags, app: app}
}

// Register adds the generate and breakdown commands to the application
func (cmd *GenerateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "generate",
			Usage:     "Turn free-form text into stored tasks",
			UsageText: "tasky generate [--user <id>] [-f notes.txt] [text...]",
			Description: `Sends the text to the language model, validates the tasks it returns and
stores each one with its subtasks for the user.

Text is taken from the arguments, then -f, then piped stdin. Each created
task is printed as one JSON line.`,
			Flags:  []cli.Flag{cmd.input.Flag()},
			Action: cmd.runGenerate,
		},
		&cli.Command{
			Name:      "breakdown",
			Usage:     "Suggest subtasks for a task without storing them",
			UsageText: "tasky breakdown [-f task.txt] [text...]",
			Flags:     []cli.Flag{cmd.input.Flag()},
			Action:    cmd.runBreakdown,
		},
	)

	return app
}

func (cmd *GenerateCmd) text(c *cli.Command) (string, error) {
	if c.Args().Present() && !cmd.input.Set() {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	return cmd.input.Read()
}

func (cmd *GenerateCmd) runGenerate(ctx context.Context, c *cli.Command) error {
	text, err := cmd.text(c)
	if err != nil {
		return err
	}

	created, err := cmd.app.Generate.Generate(ctx, tasky.GenerateRequest{
		Prompt: text,
		UserID: cmd.flags.User,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	out := c.Root().Writer
	for _, t := range created {
		if err := iojson.WriteLine(out, t); err != nil {
			return fmt.Errorf("encode task: %w", err)
		}
	}
	return nil
}

func (cmd *GenerateCmd) runBreakdown(ctx context.Context, c *cli.Command) error {
	text, err := cmd.text(c)
	if err != nil {
		return err
	}

	subtasks, err := cmd.app.Generate.Breakdown(ctx, text)
	if err != nil {
		return fmt.Errorf("breakdown: %w", err)
	}

	out := c.Root().Writer
	for _, s := range subtasks {
		_, _ = fmt.Fprintf(out, "- %s (%d min)\n", s.Title, s.Duration)
	}
	return nil
}
