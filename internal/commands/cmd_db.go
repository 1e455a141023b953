package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/iojson"
	"github.com/colonyops/tasky/pkg/render"
)

type DBCmd struct {
	flags *Flags
	app   *tasky.App

	// flags
	jsonOutput bool
}

// NewDBCmd creates a new db command
func NewDBCmd(flags *Flags, app *tasky.App) *DBCmd {
	return &DBCmd{flags: flags, app: app}
}

// Register adds the db command to the application
func (cmd *DBCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "db",
		Usage: "Inspect and roll back the database schema",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "List schema migrations and when they were applied",
				UsageText: "tasky db status [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runStatus,
			},
			{
				Name:  "rollback",
				Usage: "Revert the newest schema migrations",
				Description: `Reverts the last n applied migrations (default 1), newest first.
Use it before switching to an older tasky build. Any later tasky command
reapplies the migrations when it opens the database.`,
				UsageText: "tasky db rollback [n]",
				Action:    cmd.runRollback,
			},
		},
	})

	return app
}

func (cmd *DBCmd) runStatus(ctx context.Context, c *cli.Command) error {
	states, err := cmd.app.DB.Migrations(ctx)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	w := c.Root().Writer
	if cmd.jsonOutput {
		for _, st := range states {
			if err := iojson.WriteLine(w, st); err != nil {
				return err
			}
		}
		return nil
	}

	rows := make([][]string, 0, len(states))
	for _, st := range states {
		applied := "pending"
		if st.AppliedAt != nil {
			applied = st.AppliedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{fmt.Sprintf("%04d", st.Version), st.Name, applied})
	}
	return render.Table(w, []string{"VERSION", "NAME", "APPLIED"}, rows)
}

func (cmd *DBCmd) runRollback(ctx context.Context, c *cli.Command) error {
	n := 1
	if arg := c.Args().First(); arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 {
			return fmt.Errorf("rollback count must be a positive integer, got %q", arg)
		}
		n = v
	}

	reverted, err := cmd.app.DB.Rollback(ctx, n)
	w := c.Root().Writer
	for _, m := range reverted {
		_, _ = fmt.Fprintf(w, "Reverted %04d_%s\n", m.Version, m.Name)
	}
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
