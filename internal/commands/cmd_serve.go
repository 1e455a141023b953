package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/core/logging"
	"github.com/colonyops/tasky/internal/tasky"
	"github.com/colonyops/tasky/internal/web"
)

type ServeCmd struct {
	flags *Flags
	app   *tasky.App

	// flags
	addr string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *tasky.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the HTTP API",
		UsageText: "tasky serve [--addr :3000]",
		Description: `Starts the JSON API used by the task board frontend.

Routes are mounted under /api. The server drains in-flight requests on
SIGINT or SIGTERM before exiting.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides server.addr)",
				Sources:     cli.EnvVars("TASKY_ADDR"),
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := cmd.flags.Config.Server
	opts := web.Options{
		Addr:            cfg.Addr,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	if cmd.addr != "" {
		opts.Addr = cmd.addr
	}

	return web.NewServer(cmd.app, logging.Component("web")).Run(ctx, opts)
}
