package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/integration/googletasks"
	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/pkg/iojson"
)

type ExportCmd struct {
	flags *Flags
	app   *tasky.App

	// flags
	taskID string
	listID string
	force  bool
	code   string
}

// NewExportCmd creates a new export command
func NewExportCmd(flags *Flags, app *tasky.App) *ExportCmd {
	return &ExportCmd{flags: flags, app: app}
}

// Register adds the export command to the application
func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "export",
		Usage: "Mirror tasks into external task managers",
		Commands: []*cli.Command{
			{
				Name:      "google",
				Usage:     "Mirror a main task and its subtasks into Google Tasks",
				UsageText: "tasky export google --task <id> [--list <list-id>] [--force]",
				Description: `Creates the main task in the configured Google Tasks list and each subtask
as a child of it. Completed items are created completed.

Run 'tasky export google login' once to authorize access.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "task",
						Usage:       "main task id",
						Destination: &cmd.taskID,
					},
					&cli.StringFlag{
						Name:        "list",
						Usage:       "task list id (overrides google_tasks.task_list)",
						Destination: &cmd.listID,
					},
					&cli.BoolFlag{
						Name:        "force",
						Usage:       "export again even if the task was already exported",
						Destination: &cmd.force,
					},
				},
				Action: cmd.runGoogle,
				Commands: []*cli.Command{
					{
						Name:      "login",
						Usage:     "Authorize tasky to write to Google Tasks",
						UsageText: "tasky export google login [--code <code>]",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:        "code",
								Usage:       "authorization code (prompted for when omitted)",
								Destination: &cmd.code,
							},
						},
						Action: cmd.runLogin,
					},
				},
			},
		},
	})

	return app
}

func (cmd *ExportCmd) runGoogle(ctx context.Context, c *cli.Command) error {
	if cmd.taskID == "" {
		return fmt.Errorf("--task required, see '%s --help'", c.FullName())
	}

	cfg := cmd.flags.Config

	client, err := googletasks.New(ctx, cfg.GoogleCredentialsFile(), cfg.GoogleTokenFile())
	if err != nil {
		return fmt.Errorf("google tasks client: %w", err)
	}

	listID := cmd.listID
	if listID == "" {
		listID = cfg.GoogleTasks.TaskList
	}

	rec, err := cmd.app.Exports.Export(ctx, client, cmd.taskID, listID, cmd.force)
	if err != nil {
		return err
	}
	return iojson.WriteWith(c.Root().Writer, os.Stderr, rec)
}

func (cmd *ExportCmd) runLogin(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config

	oauthCfg, err := googletasks.OAuthConfig(cfg.GoogleCredentialsFile())
	if err != nil {
		return err
	}

	code := cmd.code
	if code == "" {
		fmt.Fprintf(os.Stderr, "Open the following URL in your browser and paste the code below:\n%s\n\nCode: ", googletasks.AuthURL(oauthCfg))

		sc := bufio.NewScanner(os.Stdin)
		if sc.Scan() {
			code = strings.TrimSpace(sc.Text())
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read authorization code: %w", err)
		}
		if code == "" {
			return fmt.Errorf("no authorization code provided")
		}
	}

	if err := googletasks.Exchange(ctx, oauthCfg, code, cfg.GoogleTokenFile()); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "Token saved to %s\n", cfg.GoogleTokenFile())
	return nil
}
