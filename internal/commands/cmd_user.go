package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/iojson"
)

type UserCmd struct {
	flags *Flags
	app   *tasky.App

	// flags
	id string
}

// NewUserCmd creates a new user command
func NewUserCmd(flags *Flags, app *tasky.App) *UserCmd {
	return &UserCmd{flags: flags, app: app}
}

// Register adds the user command to the application
func (cmd *UserCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "user",
		Usage: "Manage task owners",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a user",
				UsageText: "tasky user create [--id <id>]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "id",
						Usage:       "user id (generated when omitted)",
						Destination: &cmd.id,
					},
				},
				Action: cmd.runCreate,
			},
			{
				Name:      "show",
				Usage:     "Show a user",
				UsageText: "tasky user show <id>",
				Action:    cmd.runShow,
			},
		},
	})

	return app
}

func (cmd *UserCmd) runCreate(ctx context.Context, c *cli.Command) error {
	u, err := cmd.app.Users.Create(ctx, cmd.id)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return iojson.WriteWith(c.Root().Writer, os.Stderr, u)
}

func (cmd *UserCmd) runShow(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		id = cmd.flags.User
	}
	if id == "" {
		return fmt.Errorf("user id required")
	}

	u, err := cmd.app.Users.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	return iojson.WriteWith(c.Root().Writer, os.Stderr, u)
}
