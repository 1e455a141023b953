package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasky/internal/tasky"
)

// TaskIDCompleter returns a ShellCompleteFunc that suggests the main task
// IDs of the default user as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func TaskIDCompleter(flags *Flags, app *tasky.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if flags.User == "" {
			return
		}

		tasks, err := app.Tasks.ListTasks(ctx, flags.User)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, t := range tasks {
			_, _ = fmt.Fprintf(w, "%s:%s\n", t.ID, t.Title)
		}
	}
}
